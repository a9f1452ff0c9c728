package integration

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"bangla-rag-be/pkg/embedding"
	"bangla-rag-be/pkg/llm"
	"bangla-rag-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ollamaURL(t *testing.T) string {
	url := os.Getenv("OLLAMA_BASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: OLLAMA_BASE_URL not set")
	}
	return url
}

func TestOllamaGenerate(t *testing.T) {
	url := ollamaURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider := ollama.NewOllamaProvider(url, os.Getenv("OLLAMA_LLM_MODEL"))
	answer, err := provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: "Answer in one word."},
		{Role: "user", Content: "What is the capital of Bangladesh?"},
	}, llm.WithTemperature(0))

	require.NoError(t, err)
	assert.NotEmpty(t, answer)
}

func TestOllamaEmbeddingIsNormalized(t *testing.T) {
	url := ollamaURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := embedding.NewOllamaProvider(url, os.Getenv("OLLAMA_EMBEDDING_MODEL")).
		Generate(ctx, "ঢাকা বাংলাদেশের রাজধানী", embedding.TaskRetrievalDocument)
	require.NoError(t, err)
	require.NotEmpty(t, res.Embedding.Values)

	var norm float64
	for _, v := range res.Embedding.Values {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-3)
}
