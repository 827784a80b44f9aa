package observability

import (
	"time"

	"candidly/internal/config"
)

// Settings is the resolved observability configuration
type Settings struct {
	ServiceName        string
	ServiceVersion     string
	ServiceInstance    string
	Enabled            bool
	ConsoleOutput      bool
	PrettyPrint        bool
	SampleRate         float64
	CollectionInterval time.Duration
	Prometheus         PrometheusConfig
	OTLP               config.OTLPConfig
	CustomMetrics      config.CustomMetricsConfig
}

// SettingsFromConfig resolves settings, using version when the config names none.
func SettingsFromConfig(cfg *config.Config, version string) Settings {
	if cfg == nil {
		return Settings{
			ServiceName:        "candidly",
			ServiceVersion:     version,
			ServiceInstance:    "candidly-1",
			SampleRate:         1.0,
			CollectionInterval: 15 * time.Second,
			Prometheus:         PrometheusConfig{Endpoint: "/metrics", Port: "9090"},
		}
	}

	obs := cfg.Observability
	s := Settings{
		ServiceName:        obs.ServiceName,
		ServiceVersion:     obs.ServiceVersion,
		ServiceInstance:    obs.ServiceInstance,
		Enabled:            obs.Enabled,
		ConsoleOutput:      obs.ConsoleOutput,
		PrettyPrint:        obs.Console.PrettyPrint,
		SampleRate:         obs.SampleRate,
		CollectionInterval: obs.Metrics.CollectionInterval,
		Prometheus: PrometheusConfig{
			Enabled:  obs.Prometheus.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
		OTLP:          obs.OTLP,
		CustomMetrics: obs.CustomMetrics,
	}
	if s.ServiceVersion == "" {
		s.ServiceVersion = version
	}
	if s.ServiceName == "" {
		s.ServiceName = "candidly"
	}
	if s.ServiceInstance == "" {
		s.ServiceInstance = s.ServiceName + "-1"
	}
	if s.CollectionInterval <= 0 {
		s.CollectionInterval = 15 * time.Second
	}
	return s
}
