package response

import (
	"context"
	"math"
	"strings"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/llm"
	"bangla-rag-be/pkg/rag/prompt"
	"bangla-rag-be/pkg/rag/query"
	"bangla-rag-be/pkg/rag/search"
)

// TextGenerator is the rate-limited generation client.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error)
}

type Config struct {
	ContextDocs     int
	SourceCount     int
	ConfidenceTopN  int
	ConfidenceBoost float64
}

func DefaultConfig() Config {
	return Config{
		ContextDocs:     5,
		SourceCount:     3,
		ConfidenceTopN:  3,
		ConfidenceBoost: 1.2,
	}
}

// GenerationResult is the output of the generation stage.
type GenerationResult struct {
	Answer      string
	Sources     []string
	ContextUsed int
	Confidence  float64
}

// Generator answers a query from ranked candidates.
type Generator struct {
	llm    TextGenerator
	config Config
	logger logger.ILogger
}

func NewGenerator(gen TextGenerator, config Config, log logger.ILogger) *Generator {
	return &Generator{
		llm:    gen,
		config: config,
		logger: log,
	}
}

// Confidence is the mean relevance of the top n candidates times boost, capped at 1.
func Confidence(candidates []search.ScoredCandidate, n int, boost float64) float64 {
	if len(candidates) == 0 {
		return 0
	}
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}
	var sum float64
	for _, c := range candidates[:n] {
		sum += c.RelevanceScore
	}
	return math.Min(sum/float64(n)*boost, 1)
}

// BuildContext joins the text of the first n candidates.
func BuildContext(candidates []search.ScoredCandidate, n int) string {
	parts := make([]string, 0, n)
	for i, c := range candidates {
		if i >= n {
			break
		}
		if text := strings.TrimSpace(c.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Generate calls the model with the retrieved and conversational context. On a provider
// failure it still returns a result carrying the language's error message, plus the error.
func (g *Generator) Generate(ctx context.Context, q *query.ClassifiedQuery, candidates []search.ScoredCandidate, chatContext string) (*GenerationResult, error) {
	if len(candidates) == 0 {
		return &GenerationResult{Answer: NoContextMessage(q.Language)}, nil
	}

	text := prompt.NewBuilder(q, BuildContext(candidates, g.config.ContextDocs), chatContext).Build()

	answer, err := g.llm.Generate(ctx, text)
	if err != nil {
		g.logger.Error("Generator", "Generation failed", map[string]interface{}{
			"language": q.Language,
			"error":    err.Error(),
		})
		return &GenerationResult{Answer: GenerationErrorMessage(q.Language)}, err
	}

	sources := make([]string, 0, g.config.SourceCount)
	for i, c := range candidates {
		if i >= g.config.SourceCount {
			break
		}
		sources = append(sources, c.ID)
	}

	return &GenerationResult{
		Answer:      answer,
		Sources:     sources,
		ContextUsed: len(candidates),
		Confidence:  Confidence(candidates, g.config.ConfidenceTopN, g.config.ConfidenceBoost),
	}, nil
}
