package ratelimit

import (
	"sort"
	"sync"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/metrics"
)

// Registry hands out one Budget per provider+model. A single Registry is built at startup
// and shared by every client that talks to a metered provider.
type Registry struct {
	mu      sync.Mutex
	budgets map[string]*Budget
	clock   Clock
	logger  logger.ILogger
	metrics *metrics.Metrics
}

func NewRegistry(clock Clock, log logger.ILogger, m *metrics.Metrics) *Registry {
	if clock == nil {
		clock = SystemClock
	}
	return &Registry{
		budgets: make(map[string]*Budget),
		clock:   clock,
		logger:  log,
		metrics: m,
	}
}

// Budget returns the budget for provider/model, creating it with limits on first use.
// Later calls with different limits get the existing budget unchanged.
func (r *Registry) Budget(provider, model string, limits Limits) *Budget {
	key := provider + "/" + model
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.budgets[key]; ok {
		return b
	}
	b := newBudget(provider, model, limits, r.clock, r.logger, r.metrics)
	r.budgets[key] = b
	return b
}

// Usage lists every budget, sorted by provider then model.
func (r *Registry) Usage() []Usage {
	r.mu.Lock()
	budgets := make([]*Budget, 0, len(r.budgets))
	for _, b := range r.budgets {
		budgets = append(budgets, b)
	}
	r.mu.Unlock()

	out := make([]Usage, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, b.Usage())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})
	return out
}
