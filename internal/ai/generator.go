package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"candidly/internal/errors"
)

// TextGenerator produces free text for the interview and evaluation steps.
type TextGenerator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Generator tries the chat backends in order. Unlike the capability chains
// it has no deterministic fallback and reports ProviderUnavailable instead.
type Generator struct {
	registry *Registry
	order    []string
	logger   *errors.Logger
	recorder Recorder
}

var _ TextGenerator = (*Generator)(nil)

// NewGenerator creates a generator over the given backend order
func NewGenerator(reg *Registry, order []string, logger *errors.Logger, rec Recorder) *Generator {
	return &Generator{registry: reg, order: order, logger: logger, recorder: rec}
}

// Generate returns the first non-empty completion.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	var failures []error
	for _, name := range g.order {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		start := time.Now()
		text, usage, err := g.try(ctx, name, req)
		if g.recorder != nil {
			g.recorder.RecordProviderAttempt(ctx, CapabilityChat, name, err, time.Since(start), usage)
		}
		if err == nil {
			return text, nil
		}

		failures = append(failures, fmt.Errorf("%s: %w", name, err))
		if g.logger != nil {
			g.logger.Warn("Chat backend failed",
				"provider", name,
				"error", err.Error())
		}
	}

	cause := stderrors.Join(failures...)
	if cause == nil {
		cause = fmt.Errorf("no chat backends configured")
	}
	return "", errors.ProviderUnavailable(strings.Join(g.order, ","), cause)
}

func (g *Generator) try(ctx context.Context, name string, req Request) (string, *TokenUsage, error) {
	b, err := g.registry.Get(name)
	if err != nil {
		return "", nil, err
	}
	resp, err := b.Generate(ctx, req)
	if err != nil {
		return "", nil, err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", resp.Usage, fmt.Errorf("empty completion")
	}
	return text, resp.Usage, nil
}
