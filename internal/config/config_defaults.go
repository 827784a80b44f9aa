package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Capability chains, tried in order; the deterministic fallback always runs last
	v.SetDefault("ai.parseOrder", []string{BackendGemini, BackendOllama, BackendOpenAI})
	v.SetDefault("ai.scoreOrder", []string{BackendOllama, BackendGemini})
	v.SetDefault("ai.chatOrder", []string{BackendGemini, BackendOllama, BackendOpenAI})

	v.SetDefault("ai.gemini.apiKey", "")
	v.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.timeout", 60*time.Second)

	v.SetDefault("ai.ollama.baseURL", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "mistral")
	v.SetDefault("ai.ollama.timeout", 60*time.Second)
	v.SetDefault("ai.ollama.availableTimeout", 2*time.Second)
	v.SetDefault("ai.ollama.skipAvailableCheck", false)

	v.SetDefault("ai.openai.apiKey", "")
	v.SetDefault("ai.openai.baseURL", "https://api.openai.com")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.openai.timeout", 60*time.Second)

	// One breaker per backend
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Interview
	v.SetDefault("interview.totalPhases", 2)
	v.SetDefault("interview.chatTimeout", 90*time.Second)

	// Evaluation
	v.SetDefault("evaluation.defaultScore", 50)
	v.SetDefault("evaluation.minSummaryLength", 40)
	v.SetDefault("evaluation.maxSummaryLength", 500)
	v.SetDefault("evaluation.summaryChars", 3000)

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "data/candidly.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.maxConns", 10)
	v.SetDefault("storage.transcriptDir", "transcripts")
	v.SetDefault("storage.sessions.driver", "memory")
	v.SetDefault("storage.sessions.ttl", 24*time.Hour)
	v.SetDefault("storage.sessions.redis.addr", "localhost:6379")
	v.SetDefault("storage.sessions.redis.password", "")
	v.SetDefault("storage.sessions.redis.db", 0)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // evaluation runs inside submit
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.cors.maxAge", 300)
	v.SetDefault("server.watchPrompts", false)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "yaml", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.openaiKey", "")
	v.SetDefault("vault.secrets.databaseDSN", "")
	v.SetDefault("vault.secrets.redisPassword", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "candidly")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.providers.enabled", true)
	v.SetDefault("observability.customMetrics.providers.trackDuration", true)
	v.SetDefault("observability.customMetrics.providers.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.providers.trackFallbacks", true)
	v.SetDefault("observability.customMetrics.screening.enabled", true)
	v.SetDefault("observability.customMetrics.screening.trackScores", true)
	v.SetDefault("observability.customMetrics.screening.trackSessions", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
}
