package response

import (
	"context"
	"errors"
	"testing"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/llm"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/rag/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	prompt string
	answer string
	err    error
}

func (s *stubLLM) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func candidates(scores ...float64) []search.ScoredCandidate {
	out := make([]search.ScoredCandidate, len(scores))
	for i, s := range scores {
		out[i] = search.ScoredCandidate{ID: string(rune('a' + i)), Text: "doc " + string(rune('a'+i)), RelevanceScore: s, Rank: i + 1}
	}
	return out
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{"none", nil, 0},
		{"top three", []float64{0.6, 0.5, 0.4, 0.1}, 0.6},
		{"fewer than three", []float64{0.5}, 0.6},
		{"capped", []float64{0.95, 0.9, 0.9}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Confidence(candidates(tt.scores...), 3, 1.2), 1e-9)
		})
	}
}

func TestGenerateUsesTopContextAndSources(t *testing.T) {
	stub := &stubLLM{answer: "Dhaka"}
	g := NewGenerator(stub, DefaultConfig(), logger.NewNopLogger())
	q := &query.ClassifiedQuery{Cleaned: "What is the capital?", Language: query.LangEnglish, Type: query.TypeFactual}

	res, err := g.Generate(context.Background(), q, candidates(0.9, 0.8, 0.7, 0.6, 0.5, 0.4), "")

	require.NoError(t, err)
	assert.Equal(t, "Dhaka", res.Answer)
	assert.Equal(t, []string{"a", "b", "c"}, res.Sources)
	assert.Equal(t, 6, res.ContextUsed)
	assert.InDelta(t, 0.96, res.Confidence, 1e-9)
	assert.Contains(t, stub.prompt, "doc e")
	assert.NotContains(t, stub.prompt, "doc f")
}

func TestGenerateFailureReturnsErrorMessage(t *testing.T) {
	stub := &stubLLM{err: errors.New("boom")}
	g := NewGenerator(stub, DefaultConfig(), logger.NewNopLogger())
	q := &query.ClassifiedQuery{Cleaned: "কে?", Language: query.LangBengali, Type: query.TypeFactual}

	res, err := g.Generate(context.Background(), q, candidates(0.9), "")

	assert.Error(t, err)
	assert.Equal(t, GenerationErrorMessage(query.LangBengali), res.Answer)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Sources)
}

func TestGenerateWithoutCandidates(t *testing.T) {
	stub := &stubLLM{}
	g := NewGenerator(stub, DefaultConfig(), logger.NewNopLogger())

	res, err := g.Generate(context.Background(), &query.ClassifiedQuery{Language: query.LangEnglish}, nil, "")

	require.NoError(t, err)
	assert.Equal(t, NoContextMessage(query.LangEnglish), res.Answer)
	assert.Empty(t, stub.prompt)
}
