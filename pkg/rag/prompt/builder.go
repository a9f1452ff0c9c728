package prompt

import (
	"strings"

	"bangla-rag-be/pkg/rag/query"
)

// Builder renders the generation prompt for a classified query.
type Builder struct {
	query       *query.ClassifiedQuery
	context     string
	chatContext string
}

func NewBuilder(q *query.ClassifiedQuery, context, chatContext string) *Builder {
	return &Builder{query: q, context: context, chatContext: chatContext}
}

// Build picks the Bengali template for Bengali queries and the English one otherwise.
func (b *Builder) Build() string {
	var sb strings.Builder
	if b.query.Language == query.LangBengali {
		b.writeBengali(&sb)
	} else {
		b.writeEnglish(&sb)
	}
	return sb.String()
}

func (b *Builder) writeBengali(sb *strings.Builder) {
	sb.WriteString("আপনি একজন বাংলা সাহিত্যের বিশেষজ্ঞ। নিম্নলিখিত তথ্যের ভিত্তিতে প্রশ্নের উত্তর দিন।\n\n")
	sb.WriteString("তথ্য:\n")
	sb.WriteString(b.context)
	if b.chatContext != "" {
		sb.WriteString("\n\nপূর্ববর্তী কথোপকথন:\n")
		sb.WriteString(b.chatContext)
	}
	sb.WriteString("\n\nপ্রশ্ন: ")
	sb.WriteString(b.query.Cleaned)
	sb.WriteString("\n\nনির্দেশনা:\n")
	sb.WriteString("- শুধুমাত্র প্রদত্ত তথ্যের ভিত্তিতে উত্তর দিন\n")
	sb.WriteString("- উত্তর সংক্ষিপ্ত এবং সঠিক হতে হবে\n")
	sb.WriteString("- তথ্য খুঁজে না পেলে স্পষ্টভাবে বলুন")
	if b.query.Type == query.TypeMCQ {
		sb.WriteString("\n- বহুনির্বাচনী প্রশ্নের ক্ষেত্রে সঠিক উত্তর দিন")
	}
	sb.WriteString("\n\nউত্তর:")
}

func (b *Builder) writeEnglish(sb *strings.Builder) {
	sb.WriteString("You are a helpful assistant specializing in Bengali literature. Answer the question based on the provided information.\n\n")
	sb.WriteString("Information:\n")
	sb.WriteString(b.context)
	if b.chatContext != "" {
		sb.WriteString("\n\nPrevious conversation:\n")
		sb.WriteString(b.chatContext)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(b.query.Cleaned)
	sb.WriteString("\n\nInstructions:\n")
	sb.WriteString("- Answer based only on the information provided\n")
	sb.WriteString("- Keep the answer concise and accurate\n")
	sb.WriteString("- If the answer is not available, clearly state that the information is not found")
	if b.query.Type == query.TypeMCQ {
		sb.WriteString("\n- For multiple choice questions, provide the correct answer")
	}
	sb.WriteString("\n\nAnswer:")
}
