package response

import "bangla-rag-be/pkg/rag/query"

// GenerationErrorMessage is returned in place of an answer when the generation call fails.
func GenerationErrorMessage(language string) string {
	if language == query.LangBengali {
		return "দুঃখিত, উত্তর তৈরি করতে সমস্যা হয়েছে। আবার চেষ্টা করুন।"
	}
	return "Sorry, there was an error generating the response. Please try again."
}

// NoContextMessage is the generator's own answer when it is handed no candidates.
func NoContextMessage(language string) string {
	if language == query.LangBengali {
		return "দুঃখিত, আপনার প্রশ্নের সাথে সম্পর্কিত কোনো তথ্য খুঁজে পাওয়া যায়নি। অন্যভাবে প্রশ্ন করার চেষ্টা করুন।"
	}
	return "Sorry, I couldn't find any relevant information for your question. Please try rephrasing your question."
}
