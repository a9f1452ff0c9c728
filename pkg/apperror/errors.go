package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrThrottled      = errors.New("throttled")
	ErrProvider       = errors.New("provider error")
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation error")
)

// QuotaExhaustedError is returned once a provider model has used its daily request allowance.
type QuotaExhaustedError struct {
	Provider string
	Model    string
	Used     int
	Limit    int
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("%s/%s daily quota exhausted: %d of %d requests used", e.Provider, e.Model, e.Used, e.Limit)
}

func (e *QuotaExhaustedError) Unwrap() error {
	return ErrQuotaExhausted
}

// ProviderError describes a failed call to an embedding or generation backend.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Throttled  bool
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("%s error, code %d, body %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	if e.Throttled {
		return ErrThrottled
	}
	return ErrProvider
}

// NewProviderError classifies an HTTP failure. 429s and quota/rate-limit bodies count as throttling.
func NewProviderError(provider string, statusCode int, body string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Body:       body,
		Throttled:  statusCode == http.StatusTooManyRequests || looksThrottled(body),
	}
}

// Validation wraps a boundary input problem so it maps to ErrValidation.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsThrottled reports whether err is a transient throttling signal worth retrying.
func IsThrottled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExhausted) {
		return false
	}
	if errors.Is(err, ErrThrottled) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Throttled
	}
	return looksThrottled(err.Error())
}

func looksThrottled(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range []string{"429", "resource_exhausted", "quota", "rate limit", "too many requests"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
