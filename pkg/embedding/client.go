package embedding

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/ratelimit"
)

// Embedder puts an EmbeddingProvider behind the shared rate budget and retry policy.
type Embedder struct {
	provider  EmbeddingProvider
	limiter   *ratelimit.Client
	dimension int
	bulkDelay time.Duration
	jitter    time.Duration
	logger    logger.ILogger
}

type EmbedderConfig struct {
	Dimension int
	BulkDelay time.Duration
	Jitter    time.Duration
}

func NewEmbedder(provider EmbeddingProvider, limiter *ratelimit.Client, cfg EmbedderConfig, log logger.ILogger) *Embedder {
	return &Embedder{
		provider:  provider,
		limiter:   limiter,
		dimension: cfg.Dimension,
		bulkDelay: cfg.BulkDelay,
		jitter:    cfg.Jitter,
		logger:    log,
	}
}

func (e *Embedder) Dimension() int {
	return e.dimension
}

// ZeroVector is the placeholder used when an embedding could not be produced.
func (e *Embedder) ZeroVector() []float32 {
	return make([]float32, e.dimension)
}

func (e *Embedder) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	return ratelimit.Call(ctx, e.limiter, ratelimit.EstimateTokens(text), func(ctx context.Context) ([]float32, error) {
		res, err := e.provider.Generate(ctx, text, taskType)
		if err != nil {
			return nil, err
		}
		values := res.Embedding.Values
		if e.dimension > 0 && len(values) != e.dimension {
			return nil, fmt.Errorf("%w: %s returned %d dimensions, want %d", apperror.ErrProvider, e.provider.Name(), len(values), e.dimension)
		}
		return values, nil
	})
}

// EmbedQuery embeds a single latency-sensitive query. It retries throttling but never pauses between calls.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text, TaskQuestionAnswering)
}

// BulkResult holds one vector per input. Failed lists the indexes that were replaced by zero vectors.
type BulkResult struct {
	Vectors [][]float32
	Failed  []int
}

// EmbedDocuments embeds texts one at a time with a fixed pause plus jitter between items.
// Items that still fail after retries become zero vectors. Only quota exhaustion or
// cancellation stop the run, returning the partial result alongside the error.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) (*BulkResult, error) {
	result := &BulkResult{Vectors: make([][]float32, 0, len(texts))}

	for i, text := range texts {
		if i > 0 {
			if err := e.limiter.Sleep(ctx, e.pause()); err != nil {
				return result, err
			}
		}

		vec, err := e.embed(ctx, text, TaskRetrievalDocument)
		if err != nil {
			if errors.Is(err, apperror.ErrQuotaExhausted) || ctx.Err() != nil {
				e.logger.Error("Embedder", "Bulk embedding stopped", map[string]interface{}{
					"completed": i,
					"total":     len(texts),
					"error":     err.Error(),
				})
				return result, err
			}
			e.logger.Warn("Embedder", "Embedding failed, using zero vector", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			result.Failed = append(result.Failed, i)
			vec = e.ZeroVector()
		}
		result.Vectors = append(result.Vectors, vec)

		if (i+1)%10 == 0 {
			e.logger.Info("Embedder", "Bulk embedding progress", map[string]interface{}{
				"completed": i + 1,
				"total":     len(texts),
			})
		}
	}
	return result, nil
}

func (e *Embedder) pause() time.Duration {
	if e.jitter <= 0 {
		return e.bulkDelay
	}
	return e.bulkDelay + time.Duration(rand.Int63n(int64(e.jitter)+1))
}
