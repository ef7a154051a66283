package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/lunar/internal/core"
	"github.com/spf13/viper"
)

// Config is the immutable configuration value passed in at evaluation
// start. Strategy identity, data source, lookback parameters, and model
// references all live here, outside the core pipeline.
type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Provider   ProviderConfig            `mapstructure:"provider"`
	Archive    ArchiveConfig             `mapstructure:"archive"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	LLM        LLMConfig                 `mapstructure:"llm"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

// ProviderConfig selects and configures the panel data source.
type ProviderConfig struct {
	Type     string        `mapstructure:"type"` // "csvdir" or "yahoo"
	Path     string        `mapstructure:"path"` // For csvdir
	Interval string        `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"` // For yahoo
}

// ArchiveConfig selects and configures result persistence.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

// S3Config holds S3-compatible storage settings.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// StrategyConfig holds per-strategy settings.
type StrategyConfig struct {
	Enabled    bool           `mapstructure:"enabled"`
	Allocation float64        `mapstructure:"allocation"`
	Params     map[string]any `mapstructure:"params"`
}

// LLMConfig holds the optional result-review provider settings.
type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

// ClaudeConfig holds Anthropic API settings.
type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OllamaConfig holds Ollama endpoint settings.
type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// MetricsConfig holds metrics exposure settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Provider: ProviderConfig{
			Type:     "csvdir",
			Path:     "data",
			Interval: "1d",
			Timeout:  10 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "results",
		},
		Strategies: map[string]StrategyConfig{
			"maband":   {Enabled: true, Allocation: 1.0, Params: map[string]any{"window": 50}},
			"momentum": {Enabled: true, Allocation: 1.0, Params: map[string]any{"window": 20}},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Provider.Type {
	case "csvdir":
		if c.Provider.Path == "" {
			return core.Errorf(core.ErrConfigMissing, "provider.path for csvdir provider")
		}
	case "yahoo":
	default:
		return core.Errorf(core.ErrConfigInvalid, "unknown provider type %q", c.Provider.Type)
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.Errorf(core.ErrConfigMissing, "archive.path for localfs archive")
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.Errorf(core.ErrConfigMissing, "archive.s3.bucket")
			}
		default:
			return core.Errorf(core.ErrConfigInvalid, "unknown archive type %q", c.Archive.Type)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return core.Errorf(core.ErrConfigInvalid, "server.port %d out of range", c.Server.Port)
	}

	for name, sc := range c.Strategies {
		if sc.Allocation < 0 {
			return core.Errorf(core.ErrConfigInvalid, "strategy %s has negative allocation", name)
		}
	}

	return nil
}
