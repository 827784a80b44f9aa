package ai

import (
	"context"
	"time"

	"candidly/internal/errors"
)

// Provider is one step of a capability chain.
type Provider[In, Out any] struct {
	Name string
	Call func(ctx context.Context, in In) (Out, *TokenUsage, error)
}

// Attempt records one provider failure, in chain order.
type Attempt struct {
	Provider string        `json:"provider"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

// Result is what a chain produced and which provider produced it.
type Result[Out any] struct {
	Value    Out
	Provider string
	Attempts []Attempt
}

// Recorder receives chain telemetry. A nil Recorder is allowed.
type Recorder interface {
	RecordProviderAttempt(ctx context.Context, capability, provider string, err error, duration time.Duration, usage *TokenUsage)
	RecordFallback(ctx context.Context, capability, fallback string)
}

// Chain tries providers in order and ends in a deterministic fallback.
type Chain[In, Out any] struct {
	Name         string
	Providers    []Provider[In, Out]
	FallbackName string
	Fallback     func(In) Out

	Logger   *errors.Logger
	Recorder Recorder
}

// Run returns the first provider success. When every provider fails the
// fallback result is returned. Run never fails.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) Result[Out] {
	var attempts []Attempt

	for _, p := range c.Providers {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		out, usage, err := p.Call(ctx, in)
		elapsed := time.Since(start)

		if c.Recorder != nil {
			c.Recorder.RecordProviderAttempt(ctx, c.Name, p.Name, err, elapsed, usage)
		}

		if err == nil {
			if c.Logger != nil {
				c.Logger.Debug("Provider succeeded",
					"capability", c.Name,
					"provider", p.Name,
					"duration_ms", elapsed.Milliseconds(),
					"failed_before", len(attempts))
			}
			return Result[Out]{Value: out, Provider: p.Name, Attempts: attempts}
		}

		attempts = append(attempts, Attempt{Provider: p.Name, Error: err.Error(), Duration: elapsed})
		if c.Logger != nil {
			c.Logger.Warn("Provider failed, falling through",
				"capability", c.Name,
				"provider", p.Name,
				"error", err.Error(),
				"duration_ms", elapsed.Milliseconds())
		}
	}

	if c.Recorder != nil {
		c.Recorder.RecordFallback(ctx, c.Name, c.FallbackName)
	}
	if c.Logger != nil {
		c.Logger.Info("Using deterministic fallback",
			"capability", c.Name,
			"fallback", c.FallbackName,
			"failed_providers", len(attempts))
	}
	return Result[Out]{Value: c.Fallback(in), Provider: c.FallbackName, Attempts: attempts}
}
