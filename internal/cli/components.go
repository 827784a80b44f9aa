package cli

import (
	"context"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/errors"
	"candidly/internal/evaluation"
	"candidly/internal/interview"
	"candidly/internal/observability"
	"candidly/internal/screening"
	"candidly/internal/storage"
)

// core holds the collaborators every command needs.
type core struct {
	registry     *ai.Registry
	capabilities *ai.Capabilities
	generator    *ai.Generator
	pipeline     *evaluation.Pipeline
}

func newCore(cfg *config.Config, logger *errors.Logger, metrics *observability.Metrics) *core {
	reg := ai.NewRegistryFromConfig(cfg, logger)
	gen := ai.NewGenerator(reg, cfg.AI.ChatOrder, logger, metrics)
	return &core{
		registry:     reg,
		capabilities: ai.NewCapabilities(reg, cfg, cfg, logger, metrics),
		generator:    gen,
		pipeline:     evaluation.NewPipeline(gen, cfg.Evaluation, cfg, logger, metrics),
	}
}

// application is the core plus the stateful interview service.
type application struct {
	*core
	stores  *storage.Stores
	service *screening.Service
}

func newApplication(ctx context.Context, cfg *config.Config, logger *errors.Logger, metrics *observability.Metrics) (*application, error) {
	c := newCore(cfg, logger, metrics)

	stores, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	machine := interview.NewMachine(c.generator, c.pipeline, stores.Sessions, logger, interview.Options{
		Phases:      interview.PhasesFromConfig(cfg.Interview),
		Prompts:     cfg,
		ChatTimeout: cfg.Interview.ChatTimeout,
	})

	return &application{
		core:    c,
		stores:  stores,
		service: screening.NewService(c.capabilities, machine, stores, logger, metrics),
	}, nil
}

func (a *application) Close() error {
	return a.stores.Close()
}
