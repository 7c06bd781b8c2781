// Package config holds the server constants and the optional YAML
// configuration file with its environment fallbacks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server identity, advertised by initialize.
const (
	ServerName    = "quotascope"
	ServerVersion = "0.3.0"
)

// Upstream defaults. Every value here can be overridden via the config
// file or a QUOTASCOPE_* environment variable.
const (
	DefaultTimeoutSeconds = 15

	DefaultMeteringBaseURL = "https://api.usagemeter.io"

	DefaultAntigravityBaseURL = "https://cloudcode-pa.googleapis.com"
	DefaultTokenURL           = "https://oauth2.googleapis.com/token"

	// Antigravity's public OAuth installed-app client. Shared by every
	// Antigravity install; the per-user secret is the refresh token.
	DefaultAntigravityClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	DefaultAntigravityClientSecret = "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"
)

// Config is the full server configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Metering    MeteringConfig    `yaml:"metering"`
	Antigravity AntigravityConfig `yaml:"antigravity"`
}

// LoggingConfig holds diagnostic output settings. Logs go to stderr
// only; stdout carries protocol frames.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MeteringConfig holds usage-metering API settings.
type MeteringConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call deadline for metering requests.
func (m MeteringConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// AntigravityConfig holds Antigravity quota API settings.
type AntigravityConfig struct {
	AccountsFile   string `yaml:"accounts_file"`
	BaseURL        string `yaml:"base_url"`
	TokenURL       string `yaml:"token_url"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call deadline for token and quota requests.
func (a AntigravityConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Load reads configuration from an optional YAML file. An empty path
// skips the file entirely; the server then runs on environment
// variables and defaults alone. ${VAR} and ${VAR:-default} references
// inside the file are expanded before parsing.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		data = expandEnvVars(data)
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv fills fields that the file left empty from QUOTASCOPE_*
// environment variables.
func (c *Config) applyEnv() {
	envDefault(&c.Logging.Level, "QUOTASCOPE_LOG_LEVEL")
	envDefault(&c.Metering.BaseURL, "QUOTASCOPE_METERING_BASE_URL")
	envDefault(&c.Metering.APIKey, "QUOTASCOPE_METERING_API_KEY")
	envDefault(&c.Antigravity.AccountsFile, "QUOTASCOPE_ACCOUNTS_FILE")
	envDefault(&c.Antigravity.BaseURL, "QUOTASCOPE_ANTIGRAVITY_BASE_URL")
	envDefault(&c.Antigravity.TokenURL, "QUOTASCOPE_TOKEN_URL")
	envDefault(&c.Antigravity.ClientID, "QUOTASCOPE_CLIENT_ID")
	envDefault(&c.Antigravity.ClientSecret, "QUOTASCOPE_CLIENT_SECRET")
}

// applyDefaults fills whatever is still empty with the package
// defaults.
func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Metering.BaseURL == "" {
		c.Metering.BaseURL = DefaultMeteringBaseURL
	}
	if c.Metering.TimeoutSeconds <= 0 {
		c.Metering.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Antigravity.BaseURL == "" {
		c.Antigravity.BaseURL = DefaultAntigravityBaseURL
	}
	if c.Antigravity.TokenURL == "" {
		c.Antigravity.TokenURL = DefaultTokenURL
	}
	if c.Antigravity.ClientID == "" {
		c.Antigravity.ClientID = DefaultAntigravityClientID
	}
	if c.Antigravity.ClientSecret == "" {
		c.Antigravity.ClientSecret = DefaultAntigravityClientSecret
	}
	if c.Antigravity.TimeoutSeconds <= 0 {
		c.Antigravity.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Antigravity.AccountsFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Antigravity.AccountsFile = filepath.Join(home, ".antigravity", "accounts.json")
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Metering.TimeoutSeconds <= 0 {
		return fmt.Errorf("metering.timeout_seconds must be positive, got %d", c.Metering.TimeoutSeconds)
	}
	if c.Antigravity.TimeoutSeconds <= 0 {
		return fmt.Errorf("antigravity.timeout_seconds must be positive, got %d", c.Antigravity.TimeoutSeconds)
	}
	return nil
}

func envDefault(field *string, key string) {
	if *field != "" {
		return
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*field = v
	}
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} references with
// environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
