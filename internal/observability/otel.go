// Package observability sets up OpenTelemetry tracing and metrics and
// records screening events as candidly_* instruments.
package observability

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"candidly/internal/config"
	"candidly/internal/errors"
)

// Manager owns the tracer and meter providers.
type Manager struct {
	settings       Settings
	logger         *errors.Logger
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	metricsServer  *http.Server
	shutdownFuncs  []func(context.Context) error
}

// NewManager installs global providers when observability is enabled. A
// disabled manager still hands out usable no-op Metrics.
func NewManager(ctx context.Context, settings Settings, logger *errors.Logger) (*Manager, error) {
	m := &Manager{settings: settings, logger: logger}
	if !settings.Enabled {
		m.metrics = newNoopMetrics(settings.CustomMetrics)
		return m, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(settings.ServiceName),
			semconv.ServiceVersion(settings.ServiceVersion),
			attribute.String("service.instance.id", settings.ServiceInstance),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := m.initTracing(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	return m, nil
}

func (m *Manager) initTracing(ctx context.Context, res *resource.Resource) error {
	var (
		exporter trace.SpanExporter
		err      error
	)
	switch {
	case m.settings.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if m.settings.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.settings.OTLP.Enabled:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(m.settings.OTLP.Endpoint)}
		if m.settings.OTLP.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(m.settings.OTLP.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(m.settings.OTLP.Headers))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(m.settings.SampleRate)),
	}
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}
	tp := trace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)
	return nil
}

func (m *Manager) initMetrics(ctx context.Context, res *resource.Resource) error {
	readers, err := m.metricReaders(ctx)
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	m.metrics, err = newMetrics(mp.Meter(m.settings.ServiceName), m.settings.CustomMetrics)
	return err
}

func (m *Manager) metricReaders(ctx context.Context) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := sdkmetric.WithInterval(m.settings.CollectionInterval)

	if m.settings.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, interval))
	}

	if m.settings.OTLP.Enabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(m.settings.OTLP.Endpoint)}
		if m.settings.OTLP.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(m.settings.OTLP.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(m.settings.OTLP.Headers))
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, interval))
	}

	if m.settings.Prometheus.Enabled {
		reader, mux, err := newPrometheusReader(m.settings.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		m.metricsServer = startPrometheusServer(mux, m.settings.Prometheus.Port, m.logger)
		m.shutdownFuncs = append(m.shutdownFuncs, m.metricsServer.Shutdown)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

// Metrics returns the screening instruments
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}

// HTTPMiddleware instruments handlers with otelhttp.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.settings.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.settings.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.settings.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes exporters and stops the metrics server.
func (m *Manager) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(m.shutdownFuncs) - 1; i >= 0; i-- {
		if err := m.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Disabled returns a manager that records nothing.
func Disabled(logger *errors.Logger) *Manager {
	return &Manager{logger: logger, metrics: newNoopMetrics(config.CustomMetricsConfig{})}
}
