package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/llm"
	"bangla-rag-be/pkg/llm/factory"
	"bangla-rag-be/pkg/llm/gemini"
	"bangla-rag-be/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newLimiter(name, model string) *ratelimit.Client {
	reg := ratelimit.NewRegistry(&instantClock{now: time.Unix(0, 0)}, nil, nil)
	return ratelimit.NewClient(reg.Budget(name, model, ratelimit.Limits{RequestsPerMinute: 10}), ratelimit.DefaultRetryPolicy())
}

func TestGeminiGeneratorRetriesThrottling(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Contains(t, payload, "generationConfig")

		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":" উত্তর "}]}}]}`))
	}))
	defer srv.Close()

	p := gemini.NewGeminiProvider("key", "")
	p.BaseURL = srv.URL
	gen := llm.NewGenerator(p, newLimiter(p.Name(), p.Model()), llm.WithTemperature(0.1))

	out, err := gen.Generate(context.Background(), "প্রশ্ন")

	require.NoError(t, err)
	assert.Equal(t, "উত্তর", out)
	assert.Equal(t, 2, calls)
}

func TestGeminiProviderRejectsEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	p := gemini.NewGeminiProvider("key", "gemini-2.5-flash")
	p.BaseURL = srv.URL

	_, err := p.Generate(context.Background(), "x")
	assert.ErrorIs(t, err, apperror.ErrProvider)
}

func TestFactory(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{"gemini", "gemini", false},
		{"", "gemini", false},
		{"ollama", "ollama", false},
		{"huggingface", "huggingface", false},
		{"openai", "openai", false},
		{"anthropic", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := factory.NewLLMProvider(factory.ProviderConfig{Provider: tt.provider, Model: "m"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, "m", p.Model())
		})
	}
}

func TestApplyOptions(t *testing.T) {
	opts := llm.Apply(llm.Options{Temperature: 0.7, MaxTokens: 100}, llm.WithTemperature(0.1), llm.WithModel("x"))
	assert.Equal(t, llm.Options{Temperature: 0.1, MaxTokens: 100, Model: "x"}, opts)
}
