package session

import (
	"fmt"
	"hash/fnv"
	"strings"

	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/store"
)

var (
	englishRecallKeywords = []string{
		"last question", "last query", "previous question", "previous query",
		"what did i ask", "my last message", "previous answer", "last answer",
	}
	bengaliRecallKeywords = []string{
		"শেষ প্রশ্ন", "আগের প্রশ্ন", "আগের উত্তর", "শেষ উত্তর",
		"কি জিজ্ঞেস করেছিলাম", "কী জিজ্ঞেস করেছিলাম", "আগের কথোপকথন",
	}

	englishAnswerWords = []string{"answer", "response", "reply"}
	bengaliAnswerWords = []string{"উত্তর"}

	fallbackAnswers = map[string][]string{
		query.LangBengali: {
			"আমার এই বিষয়ে জ্ঞান নেই। আরো নির্দিষ্ট প্রশ্ন করার চেষ্টা করুন।",
			"এই প্রশ্নের উত্তর আমার জানা নেই। অন্যভাবে জিজ্ঞাসা করুন।",
			"আমি এই বিষয়ে তথ্য খুঁজে পাচ্ছি না। আরো স্পষ্ট প্রশ্ন করুন।",
		},
		query.LangEnglish: {
			"I don't have knowledge about this. Please try asking more specifically.",
			"I cannot find information about this. Please rephrase your question.",
			"I don't have data on this topic. Try asking in a different way.",
		},
	}
)

func recallKeywords(language string) []string {
	switch language {
	case query.LangBengali:
		return bengaliRecallKeywords
	case query.LangEnglish:
		return englishRecallKeywords
	}
	return append(append([]string{}, englishRecallKeywords...), bengaliRecallKeywords...)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// IsRecallQuery reports whether a query asks about the conversation's own prior turns.
func IsRecallQuery(text, language string) bool {
	return containsAny(strings.ToLower(text), recallKeywords(language))
}

// RecallAnswer echoes the previous response when the query asks for the previous answer,
// otherwise the previous query.
func RecallAnswer(last *store.ChatMessage, text, language string) string {
	lower := strings.ToLower(text)
	if language == query.LangBengali {
		if containsAny(lower, bengaliAnswerWords) {
			return fmt.Sprintf("আমার আগের উত্তর ছিল: \"%s\"", last.Response)
		}
		return fmt.Sprintf("আপনার শেষ প্রশ্ন ছিল: \"%s\"", last.Query)
	}
	if containsAny(lower, englishAnswerWords) {
		return fmt.Sprintf("My previous answer was: \"%s\"", last.Response)
	}
	return fmt.Sprintf("Your last question was: \"%s\"", last.Query)
}

// Recall answers a recall query from session history. It is false when the query is not a
// recall query or the session has no history.
func (m *Manager) Recall(sessionID, text, language string) (string, bool) {
	if !IsRecallQuery(text, language) {
		return "", false
	}
	last, ok := m.LastMessage(sessionID)
	if !ok {
		return "", false
	}
	return RecallAnswer(last, text, language), true
}

// FallbackAnswer picks a canned no-context answer from the FNV-1a hash of the query,
// so identical queries always get the same answer. Unknown languages use English.
func FallbackAnswer(text, language string) string {
	answers, ok := fallbackAnswers[language]
	if !ok {
		answers = fallbackAnswers[query.LangEnglish]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return answers[h.Sum32()%uint32(len(answers))]
}
