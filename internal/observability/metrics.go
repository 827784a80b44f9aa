package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"candidly/internal/ai"
	"candidly/internal/config"
	"candidly/internal/evaluation"
	"candidly/internal/screening"
	"candidly/internal/types"
)

// Metrics holds the candidly_* instruments. Each Record method honors the
// customMetrics switches.
type Metrics struct {
	cfg config.CustomMetricsConfig

	ProviderRequests metric.Int64Counter
	ProviderErrors   metric.Int64Counter
	ProviderDuration metric.Float64Histogram
	ProviderTokens   metric.Int64Histogram
	Fallbacks        metric.Int64Counter

	ResumesScreened  metric.Int64Counter
	ATSScores        metric.Int64Histogram
	SessionEvents    metric.Int64Counter
	Evaluations      metric.Int64Counter
	EvaluationScores metric.Int64Histogram

	RateLimitHits metric.Int64Counter
}

var (
	_ ai.Recorder         = (*Metrics)(nil)
	_ evaluation.Observer = (*Metrics)(nil)
	_ screening.Recorder  = (*Metrics)(nil)
)

func newNoopMetrics(cfg config.CustomMetricsConfig) *Metrics {
	m, _ := newMetrics(noop.NewMeterProvider().Meter("candidly"), cfg)
	return m
}

func newMetrics(meter metric.Meter, cfg config.CustomMetricsConfig) (*Metrics, error) {
	m := &Metrics{cfg: cfg}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.ProviderRequests, "candidly_provider_requests_total", "Model backend calls by capability and provider"},
		{&m.ProviderErrors, "candidly_provider_errors_total", "Failed model backend calls"},
		{&m.Fallbacks, "candidly_fallbacks_total", "Capability requests answered by the deterministic fallback"},
		{&m.ResumesScreened, "candidly_resumes_screened_total", "Résumés parsed and scored"},
		{&m.SessionEvents, "candidly_interview_session_events_total", "Interview session lifecycle events"},
		{&m.Evaluations, "candidly_evaluations_total", "Completed interview evaluations"},
		{&m.RateLimitHits, "candidly_rate_limit_hits_total", "Requests rejected by the rate limiter"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	if m.ProviderDuration, err = meter.Float64Histogram(
		"candidly_provider_duration_seconds",
		metric.WithDescription("Time spent in model backend calls"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create provider duration metric: %w", err)
	}

	if m.ProviderTokens, err = meter.Int64Histogram(
		"candidly_provider_tokens",
		metric.WithDescription("Token usage per model call (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create token usage metric: %w", err)
	}

	scoreBuckets := metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100)
	if m.ATSScores, err = meter.Int64Histogram("candidly_ats_score",
		metric.WithDescription("Résumé match scores"), scoreBuckets); err != nil {
		return nil, fmt.Errorf("failed to create ATS score metric: %w", err)
	}
	if m.EvaluationScores, err = meter.Int64Histogram("candidly_evaluation_score",
		metric.WithDescription("Interview evaluation scores"), scoreBuckets); err != nil {
		return nil, fmt.Errorf("failed to create evaluation score metric: %w", err)
	}

	return m, nil
}

// RecordProviderAttempt records one model backend call.
func (m *Metrics) RecordProviderAttempt(ctx context.Context, capability, provider string, err error, duration time.Duration, usage *ai.TokenUsage) {
	if !m.cfg.Providers.Enabled {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("provider", provider),
		attribute.Bool("success", err == nil),
	)
	m.ProviderRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.ProviderErrors.Add(ctx, 1, attrs)
	}
	if m.cfg.Providers.TrackDuration {
		m.ProviderDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if m.cfg.Providers.TrackTokenUsage && usage != nil {
		for _, t := range []struct {
			kind  string
			value int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			m.ProviderTokens.Record(ctx, t.value, metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("token_type", t.kind),
			))
		}
	}
}

// RecordFallback records a capability served by its fallback.
func (m *Metrics) RecordFallback(ctx context.Context, capability, fallback string) {
	if !m.cfg.Providers.Enabled || !m.cfg.Providers.TrackFallbacks {
		return
	}
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("capability", capability),
		attribute.String("fallback", fallback),
	))
}

// RecordUpload records a screened résumé.
func (m *Metrics) RecordUpload(ctx context.Context, parsedBy, scoredBy string, atsScore int) {
	if !m.cfg.Screening.Enabled {
		return
	}
	m.ResumesScreened.Add(ctx, 1, metric.WithAttributes(
		attribute.String("parsed_by", parsedBy),
		attribute.String("scored_by", scoredBy),
	))
	if m.cfg.Screening.TrackScores {
		m.ATSScores.Record(ctx, int64(atsScore))
	}
}

// RecordSessionEvent records an interview lifecycle event.
func (m *Metrics) RecordSessionEvent(ctx context.Context, event string) {
	if !m.cfg.Screening.Enabled || !m.cfg.Screening.TrackSessions {
		return
	}
	m.SessionEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordEvaluation records a finished evaluation; safety-net outcomes are labeled.
func (m *Metrics) RecordEvaluation(ctx context.Context, outcome types.EvaluationOutcome) {
	if !m.cfg.Screening.Enabled {
		return
	}
	m.Evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("safety_net", outcome.SafetyNet),
		attribute.Int("flags", len(outcome.Flags)),
	))
	if m.cfg.Screening.TrackScores {
		m.EvaluationScores.Record(ctx, int64(outcome.Score))
	}
}

// RecordRateLimitHit records a request rejected by the limiter.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, route string) {
	if !m.cfg.Infrastructure.Enabled || !m.cfg.Infrastructure.TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}
