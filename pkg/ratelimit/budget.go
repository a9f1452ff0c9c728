package ratelimit

import (
	"context"
	"sync"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/metrics"
)

const (
	window       = 60 * time.Second
	safetyMargin = time.Second
)

// Limits is the quota a provider model allows. Zero means unlimited.
type Limits struct {
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int
}

// Clock abstracts time so waits can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Budget is the shared quota state of one provider model. All fields are guarded by mu.
//
// In-flight calls hold a Reservation, which counts toward the minute and day caps
// until it is committed (call succeeded) or released (call failed or was canceled).
// Only committed calls are recorded.
type Budget struct {
	mu sync.Mutex

	provider string
	model    string
	limits   Limits
	clock    Clock
	logger   logger.ILogger
	metrics  *metrics.Metrics

	timestamps  []time.Time
	tokensUsed  int
	windowStart time.Time
	dailyCount  int

	pendingRequests int
	pendingTokens   int
	changed         chan struct{}
}

func newBudget(provider, model string, limits Limits, clock Clock, log logger.ILogger, m *metrics.Metrics) *Budget {
	return &Budget{
		provider:    provider,
		model:       model,
		limits:      limits,
		clock:       clock,
		logger:      log,
		metrics:     m,
		windowStart: clock.Now(),
		changed:     make(chan struct{}),
	}
}

// Reservation is a slot granted by WaitIfNeeded. Exactly one of Commit or Release takes effect.
type Reservation struct {
	budget *Budget
	tokens int
	done   bool
}

// WaitIfNeeded blocks until a call estimated at estimatedTokens fits the budget, then reserves it.
// It fails fast with a QuotaExhaustedError once the daily cap is reached and returns ctx.Err()
// if the context ends while waiting. A failed wait leaves the counters untouched.
func (b *Budget) WaitIfNeeded(ctx context.Context, estimatedTokens int) (*Reservation, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b.mu.Lock()
		now := b.clock.Now()
		b.prune(now)

		if b.limits.RequestsPerDay > 0 && b.dailyCount >= b.limits.RequestsPerDay {
			used := b.dailyCount
			b.mu.Unlock()
			b.metrics.ProviderFailure(b.provider, b.model, "quota_exhausted")
			return nil, &apperror.QuotaExhaustedError{
				Provider: b.provider,
				Model:    b.model,
				Used:     used,
				Limit:    b.limits.RequestsPerDay,
			}
		}

		wait, reason := b.delay(now, estimatedTokens)
		if reason == "" {
			b.pendingRequests++
			b.pendingTokens += estimatedTokens
			b.mu.Unlock()
			return &Reservation{budget: b, tokens: estimatedTokens}, nil
		}
		changed := b.changed
		b.mu.Unlock()

		b.metrics.RateLimitWait(b.provider, b.model, reason)
		if b.logger != nil {
			b.logger.Info("RateLimiter", "Waiting for rate budget", map[string]interface{}{
				"provider": b.provider,
				"model":    b.model,
				"reason":   reason,
				"wait_ms":  wait.Milliseconds(),
			})
		}

		var timer <-chan time.Time
		if wait > 0 {
			timer = b.clock.After(wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
		case <-changed:
		}
	}
}

// delay reports how long a new call must wait and why. An empty reason means it may proceed now.
// A zero duration with a reason means the wait ends when an in-flight reservation settles.
func (b *Budget) delay(now time.Time, tokens int) (time.Duration, string) {
	if b.limits.RequestsPerDay > 0 && b.dailyCount+b.pendingRequests >= b.limits.RequestsPerDay {
		return 0, "daily_in_flight"
	}

	if rpm := b.limits.RequestsPerMinute; rpm > 0 && len(b.timestamps)+b.pendingRequests >= rpm {
		if len(b.timestamps) == 0 || len(b.timestamps) < rpm {
			return 0, "requests_in_flight"
		}
		return b.timestamps[0].Add(window + safetyMargin).Sub(now), "requests_per_minute"
	}

	if tpm := b.limits.TokensPerMinute; tpm > 0 {
		used := b.tokensUsed + b.pendingTokens
		if used > 0 && used+tokens > tpm {
			if b.pendingTokens > 0 && b.tokensUsed+tokens <= tpm {
				return 0, "tokens_in_flight"
			}
			return b.windowStart.Add(window).Sub(now), "tokens_per_minute"
		}
	}
	return 0, ""
}

// prune drops request timestamps older than the sliding window and resets the token window when it has elapsed.
func (b *Budget) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(b.timestamps) && !b.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		b.timestamps = append(b.timestamps[:0], b.timestamps[i:]...)
	}
	if now.Sub(b.windowStart) >= window {
		b.tokensUsed = 0
		b.windowStart = now
	}
}

// notify wakes every waiter. Callers must hold mu.
func (b *Budget) notify() {
	close(b.changed)
	b.changed = make(chan struct{})
}

// Commit records the reserved call as a completed request.
func (r *Reservation) Commit() {
	if r == nil || r.done {
		return
	}
	r.done = true
	b := r.budget
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	b.prune(now)
	b.pendingRequests--
	b.pendingTokens -= r.tokens
	b.timestamps = append(b.timestamps, now)
	b.dailyCount++
	b.tokensUsed += r.tokens
	b.notify()
}

// Release gives the slot back without recording anything.
func (r *Reservation) Release() {
	if r == nil || r.done {
		return
	}
	r.done = true
	b := r.budget
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pendingRequests--
	b.pendingTokens -= r.tokens
	b.notify()
}

// Usage is a read-only view of a budget.
type Usage struct {
	Provider           string `json:"provider"`
	Model              string `json:"model"`
	RequestsLastMinute int    `json:"requests_last_minute"`
	TokensThisWindow   int    `json:"tokens_this_window"`
	RequestsToday      int    `json:"requests_today"`
	InFlight           int    `json:"in_flight"`
	Limits             Limits `json:"limits"`
}

func (b *Budget) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.clock.Now()
	cutoff := now.Add(-window)
	recent := 0
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			recent++
		}
	}
	tokens := b.tokensUsed
	if now.Sub(b.windowStart) >= window {
		tokens = 0
	}
	return Usage{
		Provider:           b.provider,
		Model:              b.model,
		RequestsLastMinute: recent,
		TokensThisWindow:   tokens,
		RequestsToday:      b.dailyCount,
		InFlight:           b.pendingRequests,
		Limits:             b.limits,
	}
}

// EstimateTokens approximates a prompt's token count from its length.
func EstimateTokens(text string) int {
	return len([]rune(text))/4 + 1
}
