package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (CANDIDLY_AI_GEMINI_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Interview     InterviewConfig     `mapstructure:"interview"`
	Evaluation    EvaluationConfig    `mapstructure:"evaluation"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	prompts *promptStore
}

// Known backend names
const (
	BackendGemini = "gemini"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// KnownBackends lists every backend a chain may reference.
var KnownBackends = []string{BackendGemini, BackendOllama, BackendOpenAI}

// AIConfig holds model backend configuration and per-capability ordering
type AIConfig struct {
	ParseOrder     []string             `mapstructure:"parseOrder"`
	ScoreOrder     []string             `mapstructure:"scoreOrder"`
	ChatOrder      []string             `mapstructure:"chatOrder"`
	Gemini         GeminiConfig         `mapstructure:"gemini"`
	Ollama         OllamaConfig         `mapstructure:"ollama"`
	OpenAI         OpenAIConfig         `mapstructure:"openai"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	CustomPrompts  PromptConfig         `mapstructure:"customPrompts"`
}

// GeminiConfig configures the Google Gemini backend
type GeminiConfig struct {
	APIKey  string        `mapstructure:"apiKey"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OllamaConfig configures a local Ollama server
type OllamaConfig struct {
	BaseURL            string        `mapstructure:"baseURL"`
	Model              string        `mapstructure:"model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	AvailableTimeout   time.Duration `mapstructure:"availableTimeout"`
	SkipAvailableCheck bool          `mapstructure:"skipAvailableCheck"`
}

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"apiKey"`
	BaseURL string        `mapstructure:"baseURL"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// PromptConfig holds inline prompt overrides and prompt file paths.
// A prompt loaded from a file wins over the inline value.
type PromptConfig struct {
	ParseResume          string `mapstructure:"parseResume"`
	ParseResumeFile      string `mapstructure:"parseResumeFile"`
	ScoreCandidate       string `mapstructure:"scoreCandidate"`
	ScoreCandidateFile   string `mapstructure:"scoreCandidateFile"`
	InterviewSystem      string `mapstructure:"interviewSystem"`
	InterviewSystemFile  string `mapstructure:"interviewSystemFile"`
	EvaluationSystem     string `mapstructure:"evaluationSystem"`
	EvaluationSystemFile string `mapstructure:"evaluationSystemFile"`
	EvaluationRubric     string `mapstructure:"evaluationRubric"`
	EvaluationRubricFile string `mapstructure:"evaluationRubricFile"`
}

// InterviewConfig holds the scripted interview shape
type InterviewConfig struct {
	TotalPhases int           `mapstructure:"totalPhases"`
	Phases      []PhaseConfig `mapstructure:"phases"`
	// ChatTimeout bounds a single interviewer turn across all backends.
	ChatTimeout time.Duration `mapstructure:"chatTimeout"`
}

// PhaseConfig overrides one interview phase
type PhaseConfig struct {
	Label       string `mapstructure:"label"`
	Instruction string `mapstructure:"instruction"`
}

// EvaluationConfig holds post-interview scoring knobs
type EvaluationConfig struct {
	DefaultScore     int `mapstructure:"defaultScore"`
	MinSummaryLength int `mapstructure:"minSummaryLength"`
	MaxSummaryLength int `mapstructure:"maxSummaryLength"`
	SummaryChars     int `mapstructure:"summaryChars"`
}

// StorageConfig selects the persistence collaborators
type StorageConfig struct {
	Driver        string             `mapstructure:"driver"` // memory, sqlite, postgres
	SQLite        SQLiteConfig       `mapstructure:"sqlite"`
	Postgres      PostgresConfig     `mapstructure:"postgres"`
	TranscriptDir string             `mapstructure:"transcriptDir"`
	Sessions      SessionStoreConfig `mapstructure:"sessions"`
}

// SQLiteConfig configures the embedded database
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig configures the pgx connection pool
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"maxConns"`
}

// SessionStoreConfig selects where interview sessions live
type SessionStoreConfig struct {
	Driver string        `mapstructure:"driver"` // memory, redis
	TTL    time.Duration `mapstructure:"ttl"`
	Redis  RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the redis client
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	TLS TLSConfig `mapstructure:"tls"`

	// API keys guarding the recruiter endpoints. Candidate endpoints
	// authenticate with their session token instead.
	APIKeys []string `mapstructure:"apiKeys"`

	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	CORS      CORSConfig      `mapstructure:"cors"`

	// WatchPrompts reloads prompt files when they change on disk.
	WatchPrompts bool `mapstructure:"watchPrompts"`
}

// CORSConfig holds the origins allowed to call the interview API from a browser
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
	MaxAge         int      `mapstructure:"maxAge"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	Providers      ProviderMetricsConfig       `mapstructure:"providers"`
	Screening      ScreeningMetricsConfig      `mapstructure:"screening"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// ProviderMetricsConfig controls model backend metrics
type ProviderMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
	TrackFallbacks  bool `mapstructure:"trackFallbacks"`
}

// ScreeningMetricsConfig controls interview and evaluation metrics
type ScreeningMetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	TrackScores   bool `mapstructure:"trackScores"`
	TrackSessions bool `mapstructure:"trackSessions"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return load(viper.New(), "")
}

// LoadConfigFile is LoadConfig with an explicit config file path.
func LoadConfigFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

func load(v *viper.Viper, path string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix("CANDIDLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Println("[CONFIG] Configured environment variable handling with prefix 'CANDIDLY'")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/candidly/")
		v.AddConfigPath("$HOME/.candidly")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/candidly/, $HOME/.candidly, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	log.Println("[CONFIG] Successfully unmarshaled configuration")

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if config.Vault.Enabled {
		log.Println("[CONFIG] Applying secrets from Vault")
		if err := ApplyVaultSecrets(&config, nil); err != nil {
			return nil, fmt.Errorf("failed to apply vault secrets: %w", err)
		}
	}

	if err := config.validatePromptFiles(); err != nil {
		return nil, fmt.Errorf("prompt file validation failed: %w", err)
	}
	config.prompts = newPromptStore()
	if err := config.LoadPromptFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid. Missing model credentials
// are not an error: the provider chains fall back to deterministic scoring.
func (c *Config) Validate() error {
	orders := map[string][]string{
		"ai.parseOrder": c.AI.ParseOrder,
		"ai.scoreOrder": c.AI.ScoreOrder,
		"ai.chatOrder":  c.AI.ChatOrder,
	}
	for key, order := range orders {
		for _, name := range order {
			if !slices.Contains(KnownBackends, name) {
				return fmt.Errorf("%s: unknown backend %q (must be one of %s)", key, name, strings.Join(KnownBackends, ", "))
			}
		}
	}

	if c.Interview.TotalPhases <= 0 {
		return fmt.Errorf("interview.totalPhases must be positive")
	}
	if len(c.Interview.Phases) > 0 && len(c.Interview.Phases) != c.Interview.TotalPhases {
		return fmt.Errorf("interview.phases defines %d phases but interview.totalPhases is %d",
			len(c.Interview.Phases), c.Interview.TotalPhases)
	}

	e := c.Evaluation
	if e.DefaultScore < 0 || e.DefaultScore > 100 {
		return fmt.Errorf("evaluation.defaultScore must be within 0-100")
	}
	if e.MaxSummaryLength <= 0 || e.MinSummaryLength > e.MaxSummaryLength {
		return fmt.Errorf("evaluation summary bounds are inconsistent (min %d, max %d)", e.MinSummaryLength, e.MaxSummaryLength)
	}

	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be 'memory', 'sqlite' or 'postgres')", c.Storage.Driver)
	}

	switch c.Storage.Sessions.Driver {
	case "memory":
	case "redis":
		if c.Storage.Sessions.Redis.Addr == "" {
			return fmt.Errorf("storage.sessions.redis.addr is required for the redis session store")
		}
	default:
		return fmt.Errorf("invalid session store driver: %s (must be 'memory' or 'redis')", c.Storage.Sessions.Driver)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}
