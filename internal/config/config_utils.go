package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyModelKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks accepts a comma-separated key list, which viper
// does not split on its own for slice fields read from the environment.
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 1 && strings.Contains(c.Server.APIKeys[0], ",") {
		c.Server.APIKeys = splitKeys(c.Server.APIKeys[0])
	}
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("CANDIDLY_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = splitKeys(apiKeysEnv)
		}
	}
}

func splitKeys(s string) []string {
	var keys []string
	for key := range strings.SplitSeq(s, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// applyModelKeyFallbacks honours the conventional provider variables
func (c *Config) applyModelKeyFallbacks() {
	if c.AI.Gemini.APIKey == "" {
		c.AI.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.AI.OpenAI.APIKey == "" {
		c.AI.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.AI.Ollama.BaseURL == "" {
		c.AI.Ollama.BaseURL = os.Getenv("OLLAMA_HOST")
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// ConfiguredBackends reports which model backends have what they need to be tried.
func (c *Config) ConfiguredBackends() map[string]bool {
	return map[string]bool{
		BackendGemini: c.AI.Gemini.APIKey != "",
		BackendOllama: c.AI.Ollama.BaseURL != "",
		BackendOpenAI: c.AI.OpenAI.APIKey != "",
	}
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"CANDIDLY_AI_GEMINI_APIKEY",
		"CANDIDLY_AI_OPENAI_APIKEY",
		"CANDIDLY_AI_OLLAMA_BASEURL",
		"CANDIDLY_SERVER_PORT",
		"CANDIDLY_SERVER_HOST",
		"CANDIDLY_SERVER_APIKEYS",
		"CANDIDLY_STORAGE_DRIVER",
		"CANDIDLY_APP_LOGLEVEL",
		"CANDIDLY_VAULT_ENABLED",
		"GEMINI_API_KEY",
		"OPENAI_API_KEY",
		"OLLAMA_HOST",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			if strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	for _, name := range KnownBackends {
		state := "***NOT SET***"
		if c.ConfiguredBackends()[name] {
			state = "***CONFIGURED***"
		}
		log.Printf("[CONFIG] Backend %s: %s", name, state)
	}
	log.Printf("[CONFIG] Parse order: %s", strings.Join(c.AI.ParseOrder, " -> "))
	log.Printf("[CONFIG] Score order: %s", strings.Join(c.AI.ScoreOrder, " -> "))
	log.Printf("[CONFIG] Chat order: %s", strings.Join(c.AI.ChatOrder, " -> "))
	log.Printf("[CONFIG] Storage: %s, sessions: %s", c.Storage.Driver, c.Storage.Sessions.Driver)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
