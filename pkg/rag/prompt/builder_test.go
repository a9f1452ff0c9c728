package prompt

import (
	"strings"
	"testing"

	"bangla-rag-be/pkg/rag/query"

	"github.com/stretchr/testify/assert"
)

func TestBuildEnglish(t *testing.T) {
	q := &query.ClassifiedQuery{Cleaned: "What is the capital?", Language: query.LangEnglish, Type: query.TypeFactual}

	p := NewBuilder(q, "ctx one\n\nctx two", "").Build()

	assert.True(t, strings.HasPrefix(p, "You are a helpful assistant specializing in Bengali literature."))
	assert.Contains(t, p, "Information:\nctx one\n\nctx two\n\nQuestion: What is the capital?")
	assert.NotContains(t, p, "multiple choice")
	assert.NotContains(t, p, "Previous conversation")
	assert.True(t, strings.HasSuffix(p, "\n\nAnswer:"))
}

func TestBuildBengaliMCQWithChatContext(t *testing.T) {
	q := &query.ClassifiedQuery{Cleaned: "সঠিক উত্তর কোনটি?", Language: query.LangBengali, Type: query.TypeMCQ}

	p := NewBuilder(q, "তথ্য এক", "Previous Q: আগে\nPrevious A: পরে").Build()

	assert.True(t, strings.HasPrefix(p, "আপনি একজন বাংলা সাহিত্যের বিশেষজ্ঞ।"))
	assert.Contains(t, p, "পূর্ববর্তী কথোপকথন:\nPrevious Q: আগে")
	assert.Contains(t, p, "- বহুনির্বাচনী প্রশ্নের ক্ষেত্রে সঠিক উত্তর দিন\n\nউত্তর:")
}

func TestUnknownLanguageUsesEnglish(t *testing.T) {
	q := &query.ClassifiedQuery{Cleaned: "x", Language: query.LangUnknown, Type: query.TypeGeneral}
	assert.Contains(t, NewBuilder(q, "", "").Build(), "Question: x")
}
