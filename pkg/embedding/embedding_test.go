package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantClock struct {
	mu     sync.Mutex
	now    time.Time
	waited time.Duration
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waited += d
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type scriptedProvider struct {
	calls int
	fail  map[string]error
	dim   int
}

func (p *scriptedProvider) Name() string  { return "fake" }
func (p *scriptedProvider) Model() string { return "fake-embed" }

func (p *scriptedProvider) Generate(_ context.Context, text string, _ string) (*EmbeddingResponse, error) {
	p.calls++
	if err, ok := p.fail[text]; ok {
		return nil, err
	}
	values := make([]float32, p.dim)
	values[0] = 1
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: values}}, nil
}

func newTestEmbedder(p EmbeddingProvider, limits ratelimit.Limits) (*Embedder, *instantClock) {
	clock := &instantClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	reg := ratelimit.NewRegistry(clock, nil, nil)
	limiter := ratelimit.NewClient(reg.Budget(p.Name(), p.Model(), limits), ratelimit.DefaultRetryPolicy())
	e := NewEmbedder(p, limiter, EmbedderConfig{Dimension: 4, BulkDelay: 2 * time.Second}, logger.NewNopLogger())
	return e, clock
}

func TestEmbedDocumentsSubstitutesZeroVectors(t *testing.T) {
	p := &scriptedProvider{dim: 4, fail: map[string]error{
		"bad":       errors.New("connection reset"),
		"throttled": apperror.NewProviderError("fake", http.StatusTooManyRequests, "quota"),
	}}
	e, clock := newTestEmbedder(p, ratelimit.Limits{})

	res, err := e.EmbedDocuments(context.Background(), []string{"one", "bad", "throttled", "two"})

	require.NoError(t, err)
	require.Len(t, res.Vectors, 4)
	assert.Equal(t, []int{1, 2}, res.Failed)
	assert.Equal(t, make([]float32, 4), res.Vectors[1])
	assert.Equal(t, make([]float32, 4), res.Vectors[2])
	assert.Equal(t, float32(1), res.Vectors[3][0])
	// 1 + 1 + 3 + 1 provider calls
	assert.Equal(t, 6, p.calls)
	// three inter-item pauses plus 2s and 4s of backoff
	assert.Equal(t, 3*2*time.Second+6*time.Second, clock.waited)
}

func TestEmbedDocumentsStopsOnQuota(t *testing.T) {
	p := &scriptedProvider{dim: 4}
	e, _ := newTestEmbedder(p, ratelimit.Limits{RequestsPerDay: 2})

	res, err := e.EmbedDocuments(context.Background(), []string{"a", "b", "c", "d"})

	assert.ErrorIs(t, err, apperror.ErrQuotaExhausted)
	assert.Len(t, res.Vectors, 2)
}

func TestEmbedQueryHasNoPause(t *testing.T) {
	p := &scriptedProvider{dim: 4}
	e, clock := newTestEmbedder(p, ratelimit.Limits{})

	for i := 0; i < 3; i++ {
		vec, err := e.EmbedQuery(context.Background(), "query")
		require.NoError(t, err)
		assert.Len(t, vec, 4)
	}
	assert.Zero(t, clock.waited)
}

func TestEmbedRejectsWrongDimension(t *testing.T) {
	p := &scriptedProvider{dim: 3}
	e, _ := newTestEmbedder(p, ratelimit.Limits{})

	_, err := e.EmbedQuery(context.Background(), "query")
	assert.ErrorIs(t, err, apperror.ErrProvider)
}

func TestGeminiProviderRequestShape(t *testing.T) {
	var got EmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-embedding-001:embedContent"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"embedding":{"values":[3,4]}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("secret", "", 2)
	p.BaseURL = srv.URL

	res, err := p.Generate(context.Background(), "প্রশ্ন", TaskRetrievalDocument)

	require.NoError(t, err)
	assert.Equal(t, TaskRetrievalDocument, got.TaskType)
	assert.Equal(t, 2, got.OutputDimensionality)
	assert.Equal(t, "প্রশ্ন", got.Content.Parts[0].Text)
	assert.InDelta(t, 0.6, res.Embedding.Values[0], 1e-6)
	assert.InDelta(t, 0.8, res.Embedding.Values[1], 1e-6)
}

func TestGeminiProviderClassifiesThrottling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("k", "gemini-embedding-001", 768)
	p.BaseURL = srv.URL

	_, err := p.Generate(context.Background(), "x", TaskRetrievalQuery)
	assert.ErrorIs(t, err, apperror.ErrThrottled)
	assert.True(t, apperror.IsThrottled(err))
}

func TestOllamaProviderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"embedding":[0,5,0]}`))
	}))
	defer srv.Close()

	res, err := NewOllamaProvider(srv.URL, "").Generate(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, res.Embedding.Values)
}
