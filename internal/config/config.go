package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`

	// Server
	Port            int           `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Generation
	GeneratorProvider     string        `mapstructure:"GENERATOR_PROVIDER"`
	AnthropicAPIKey       string        `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel        string        `mapstructure:"ANTHROPIC_MODEL"`
	GeminiAPIKey          string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel           string        `mapstructure:"GEMINI_MODEL"`
	GenerationTemperature float64       `mapstructure:"GENERATION_TEMPERATURE"`
	GenerationMaxTokens   int           `mapstructure:"GENERATION_MAX_TOKENS"`
	GenerationConcurrency int           `mapstructure:"GENERATION_CONCURRENCY"`
	GenerationTimeout     time.Duration `mapstructure:"GENERATION_TIMEOUT"`
	FallbackDelay         time.Duration `mapstructure:"FALLBACK_DELAY"`

	// Storage
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	RedisURL     string `mapstructure:"REDIS_URL"`
	RedisKey     string `mapstructure:"REDIS_KEY"`

	// Auth
	AuthSecret        string        `mapstructure:"AUTH_SECRET"`
	OwnerPasswordHash string        `mapstructure:"OWNER_PASSWORD_HASH"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`

	// Limits
	MaxImages     int `mapstructure:"MAX_IMAGES"`
	MaxImageBytes int `mapstructure:"MAX_IMAGE_BYTES"`
	MaxQuestions  int `mapstructure:"MAX_QUESTIONS"`

	NarrationEnabled bool `mapstructure:"NARRATION_ENABLED"`
}

var defaults = map[string]interface{}{
	"ENVIRONMENT":            "development",
	"PORT":                   8080,
	"SHUTDOWN_TIMEOUT":       15 * time.Second,
	"GENERATOR_PROVIDER":     "",
	"ANTHROPIC_API_KEY":      "",
	"ANTHROPIC_MODEL":        "claude-sonnet-4-5",
	"GEMINI_API_KEY":         "",
	"GEMINI_MODEL":           "gemini-2.5-flash",
	"GENERATION_TEMPERATURE": 0.8,
	"GENERATION_MAX_TOKENS":  500,
	"GENERATION_CONCURRENCY": 0,
	"GENERATION_TIMEOUT":     60 * time.Second,
	"FALLBACK_DELAY":         1500 * time.Millisecond,
	"STORE_BACKEND":          "memory",
	"DATABASE_URL":           "",
	"SQLITE_PATH":            "memorymate.db",
	"REDIS_URL":              "",
	"REDIS_KEY":              "memorymate:games",
	"AUTH_SECRET":            "",
	"OWNER_PASSWORD_HASH":    "",
	"TOKEN_TTL":              24 * time.Hour,
	"MAX_IMAGES":             10,
	"MAX_IMAGE_BYTES":        5 << 20,
	"MAX_QUESTIONS":          20,
	"NARRATION_ENABLED":      true,
}

// Load reads config.yaml from . or ./config when present; environment
// variables take precedence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.GeneratorProvider = strings.ToLower(strings.TrimSpace(cfg.GeneratorProvider))
	if cfg.GeneratorProvider == "" {
		cfg.GeneratorProvider = "none"
		if cfg.AnthropicAPIKey != "" {
			cfg.GeneratorProvider = "anthropic"
		}
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.GeneratorProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return errors.New("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock", "none":
	default:
		return fmt.Errorf("GENERATOR_PROVIDER must be anthropic, gemini, mock or none, got %q", c.GeneratorProvider)
	}

	switch c.StoreBackend {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite store")
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be memory, postgres, sqlite or redis, got %q", c.StoreBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.GenerationTemperature < 0 || c.GenerationTemperature > 1 {
		return fmt.Errorf("GENERATION_TEMPERATURE must be within [0,1], got %v", c.GenerationTemperature)
	}
	if c.MaxImages <= 0 || c.MaxQuestions <= 0 || c.MaxImageBytes <= 0 {
		return errors.New("MAX_IMAGES, MAX_IMAGE_BYTES and MAX_QUESTIONS must be positive")
	}
	if (c.AuthSecret == "") != (c.OwnerPasswordHash == "") {
		return errors.New("AUTH_SECRET and OWNER_PASSWORD_HASH must be set together")
	}
	return nil
}

// AuthEnabled reports whether API routes require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.AuthSecret != "" && c.OwnerPasswordHash != ""
}
