package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"candidly/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets are KVv2 paths. An empty path leaves the setting alone.
type VaultSecrets struct {
	APIKeys       string `mapstructure:"apiKeys"`       // field "keys", comma separated
	GeminiKey     string `mapstructure:"geminiKey"`     // field "api_key"
	OpenAIKey     string `mapstructure:"openaiKey"`     // field "api_key"
	DatabaseDSN   string `mapstructure:"databaseDSN"`   // field "dsn"
	RedisPassword string `mapstructure:"redisPassword"` // field "password"
	TLSCerts      string `mapstructure:"tlsCerts"`      // fields "cert" and "key", PEM content
}

// VaultSecret is one KVv2 read.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// VaultClient reads KVv2 secrets.
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks that it answers.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", apiCfg.Address, err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", apiCfg.Address,
			"version", health.Version,
			"sealed", health.Sealed)
	}
	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the configured token over the token file.
func resolveVaultToken(cfg VaultConfig) (string, error) {
	token := cfg.Token
	if token == "" && cfg.TokenFile != "" {
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// Read fetches a KVv2 secret. KVv1 layouts are rejected.
func (vc *VaultClient) Read(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	version, err := secretVersion(metadata["version"])
	if err != nil {
		return nil, fmt.Errorf("secret at %s: %w", path, err)
	}

	if vc.logger != nil {
		vc.logger.Debug("Secret read from Vault", "path", path, "version", version, "fields", len(data))
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// String returns one string field of a secret.
func (vc *VaultClient) String(path, field string) (string, error) {
	secret, err := vc.Read(path)
	if err != nil {
		return "", err
	}
	raw, ok := secret.Data[field]
	if !ok {
		return "", fmt.Errorf("field '%s' not found in secret %s", field, path)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field '%s' in secret %s is not a string", field, path)
	}
	return s, nil
}

func secretVersion(raw any) (int64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("metadata is missing 'version'")
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse version %q: %w", v, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected version type %T", raw)
	}
}

// secretBinding copies one secret field into the config. apply reports
// whether the value was used.
type secretBinding struct {
	name  string
	path  string
	field string
	apply func(c *Config, value string) bool
}

func setIfPresent(target *string) func(*Config, string) bool {
	return func(_ *Config, value string) bool {
		if value == "" {
			return false
		}
		*target = value
		return true
	}
}

func (c *Config) vaultBindings() []secretBinding {
	s := c.Vault.Secrets
	return []secretBinding{
		{name: "recruiter API keys", path: s.APIKeys, field: "keys", apply: func(c *Config, value string) bool {
			keys := splitKeys(value)
			if len(keys) == 0 {
				return false
			}
			c.Server.APIKeys = keys
			return true
		}},
		{name: "Gemini API key", path: s.GeminiKey, field: "api_key", apply: setIfPresent(&c.AI.Gemini.APIKey)},
		{name: "OpenAI API key", path: s.OpenAIKey, field: "api_key", apply: setIfPresent(&c.AI.OpenAI.APIKey)},
		{name: "database DSN", path: s.DatabaseDSN, field: "dsn", apply: setIfPresent(&c.Storage.Postgres.DSN)},
		{name: "redis password", path: s.RedisPassword, field: "password", apply: setIfPresent(&c.Storage.Sessions.Redis.Password)},
	}
}

// ApplyVaultSecrets overlays Vault secrets on config. Vault values win over
// the config file and the environment.
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return config.applySecrets(client, logger)
}

func (c *Config) applySecrets(client *VaultClient, logger *errors.Logger) error {
	applied := 0
	for _, b := range c.vaultBindings() {
		if b.path == "" {
			continue
		}
		value, err := client.String(b.path, b.field)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		if b.apply(c, value) {
			applied++
		} else if logger != nil {
			logger.Warn("Empty secret in Vault, keeping configured value", "secret", b.name, "path", b.path)
		}
	}

	if path := c.Vault.Secrets.TLSCerts; path != "" {
		secret, err := client.Read(path)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		applied += c.applyTLSSecret(secret)
	}

	if logger != nil {
		logger.Info("Secrets applied from Vault", "count", applied)
	}
	return nil
}

// applyTLSSecret takes PEM content from the "cert" and "key" fields.
func (c *Config) applyTLSSecret(secret *VaultSecret) int {
	n := 0
	if cert, ok := secret.Data["cert"].(string); ok && cert != "" {
		c.Server.TLS.CertContent = cert
		n++
	}
	if key, ok := secret.Data["key"].(string); ok && key != "" {
		c.Server.TLS.KeyContent = key
		n++
	}
	return n
}
