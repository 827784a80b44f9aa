package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"candidly/internal/config"
	"candidly/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// BreakerBackend wraps a backend with its own circuit breaker
type BreakerBackend struct {
	Backend
	cb *gobreaker.CircuitBreaker[*Response]
}

// WithBreaker wraps b in a circuit breaker. A disabled breaker config
// returns b unchanged.
func WithBreaker(b Backend, cfg config.CircuitBreakerConfig, logger *errors.Logger) Backend {
	if !cfg.Enabled {
		return b
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("backend-%s", b.Name()),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"backend", b.Name(),
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &BreakerBackend{
		Backend: b,
		cb:      gobreaker.NewCircuitBreaker[*Response](settings),
	}
}

// Generate runs the wrapped backend through the breaker
func (b *BreakerBackend) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := b.cb.Execute(func() (*Response, error) {
		return b.Backend.Generate(ctx, req)
	})
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.ProviderUnavailable(b.Name(), err)
	}
	return resp, err
}

// Stats returns circuit breaker statistics
func (b *BreakerBackend) Stats() map[string]any {
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *BreakerBackend) IsHealthy() bool {
	return b.cb.State() == gobreaker.StateClosed
}

// isClientError reports 4xx responses other than 429. Those are caused by
// the request, not by the backend being unhealthy.
func isClientError(err error) bool {
	code := statusCode(err)
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func statusCode(err error) int {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.Code
	}
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return genaiErr.Code
	}
	return 0
}

// StatusError is a non-2xx answer from an HTTP backend
type StatusError struct {
	Backend string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Backend, e.Code, e.Body)
}
