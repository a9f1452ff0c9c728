package llm

import (
	"context"

	"bangla-rag-be/pkg/ratelimit"
)

// Generator puts an LLMProvider behind the shared generation budget.
type Generator struct {
	provider LLMProvider
	limiter  *ratelimit.Client
	defaults []Option
}

func NewGenerator(provider LLMProvider, limiter *ratelimit.Client, defaults ...Option) *Generator {
	return &Generator{provider: provider, limiter: limiter, defaults: defaults}
}

// Generate reserves budget for the estimated prompt size and retries throttling.
func (g *Generator) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	opts := append(append([]Option{}, g.defaults...), options...)
	return ratelimit.Call(ctx, g.limiter, ratelimit.EstimateTokens(prompt), func(ctx context.Context) (string, error) {
		return g.provider.Generate(ctx, prompt, opts...)
	})
}
