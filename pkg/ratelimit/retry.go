package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bangla-rag-be/internal/pkg/logger"
	"bangla-rag-be/pkg/apperror"
	"bangla-rag-be/pkg/metrics"
)

// RetryPolicy controls how throttled calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    120 * time.Second,
	}
}

// Backoff is min(MaxDelay, BaseDelay * 2^attempt) for a zero-based attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return p.MaxDelay
	}
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		return p.MaxDelay
	}
	return d
}

// Client runs calls against one Budget under a RetryPolicy.
type Client struct {
	budget  *Budget
	policy  RetryPolicy
	clock   Clock
	logger  logger.ILogger
	metrics *metrics.Metrics
}

func NewClient(budget *Budget, policy RetryPolicy) *Client {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	return &Client{
		budget:  budget,
		policy:  policy,
		clock:   budget.clock,
		logger:  budget.logger,
		metrics: budget.metrics,
	}
}

func (c *Client) Budget() *Budget {
	return c.budget
}

func (c *Client) Policy() RetryPolicy {
	return c.policy
}

// Sleep waits for d or until ctx ends.
func (c *Client) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.clock.After(d):
		return nil
	}
}

// Call runs fn inside the budget. Throttling errors are retried with exponential backoff,
// any other error is returned at once. QuotaExhausted and context errors are never retried.
func Call[T any](ctx context.Context, c *Client, estimatedTokens int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	provider, model := c.budget.provider, c.budget.model

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		reservation, err := c.budget.WaitIfNeeded(ctx, estimatedTokens)
		if err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			reservation.Commit()
			return result, nil
		}
		reservation.Release()
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if errors.Is(err, apperror.ErrQuotaExhausted) || !apperror.IsThrottled(err) {
			c.metrics.ProviderFailure(provider, model, "provider_error")
			return zero, err
		}
		if attempt == c.policy.MaxAttempts-1 {
			break
		}

		delay := c.policy.Backoff(attempt)
		c.metrics.ProviderRetry(provider, model)
		if c.logger != nil {
			c.logger.Warn("RateLimiter", "Provider throttled, backing off", map[string]interface{}{
				"provider": provider,
				"model":    model,
				"attempt":  attempt + 1,
				"delay_ms": delay.Milliseconds(),
				"error":    err.Error(),
			})
		}
		if err := c.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	c.metrics.ProviderFailure(provider, model, "throttled")
	return zero, fmt.Errorf("%w: %s/%s gave up after %d attempts: %v", apperror.ErrThrottled, provider, model, c.policy.MaxAttempts, lastErr)
}
