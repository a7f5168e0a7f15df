package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port      string
	GinMode   string
	Model     ModelConfig
	Gemini    GeminiConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	RateLimit RateLimitConfig
	// AllowedOrigins is the CORS allow list; empty means any origin.
	AllowedOrigins []string
}

type ModelConfig struct {
	Path    string
	URL     string
	Timeout time.Duration
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type DatabaseConfig struct {
	Enabled bool
	URL     string
}

type LoggerConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

type RateLimitConfig struct {
	PerMinute int
	Burst     int
}

// New returns a viper instance with every default registered and
// environment lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("MODEL_PATH", "")
	v.SetDefault("MODEL_URL", "")
	v.SetDefault("MODEL_TIMEOUT", "30s")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "")
	v.SetDefault("ADVICE_TIMEOUT", "60s")
	v.SetDefault("ENABLE_DB", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 3)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("RATE_LIMIT_PER_MIN", 30)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("ALLOWED_ORIGINS", "")
	return v
}

// FromViper builds and validates a Config.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),
		Model: ModelConfig{
			Path:    v.GetString("MODEL_PATH"),
			URL:     v.GetString("MODEL_URL"),
			Timeout: v.GetDuration("MODEL_TIMEOUT"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("GEMINI_API_KEY"),
			Model:   v.GetString("GEMINI_MODEL"),
			BaseURL: v.GetString("GEMINI_BASE_URL"),
			Timeout: v.GetDuration("ADVICE_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Enabled: v.GetBool("ENABLE_DB"),
			URL:     v.GetString("DATABASE_URL"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			File:       v.GetString("LOG_FILE"),
			MaxSize:    v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAge:     v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: v.GetInt("RATE_LIMIT_PER_MIN"),
			Burst:     v.GetInt("RATE_LIMIT_BURST"),
		},
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.Database.Enabled && c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Model.Path == "" && c.Model.URL == "" {
		return fmt.Errorf("one of MODEL_PATH or MODEL_URL is required")
	}
	if c.Model.Path != "" && c.Model.URL != "" {
		return fmt.Errorf("MODEL_PATH and MODEL_URL are mutually exclusive")
	}
	if c.RateLimit.PerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" && p != "*" {
			out = append(out, p)
		}
	}
	return out
}
