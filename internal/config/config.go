package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string `env:"PORT" envDefault:"8080"`
	DatabaseType   string `env:"DATABASE_TYPE" envDefault:"sqlite"`
	DatabasePath   string `env:"DB_PATH" envDefault:"./classplanner.db"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./migrations"`
	LogMode        string `env:"LOG_MODE" envDefault:"dev"`

	// Empty secret disables bearer-token checks on /api routes
	APITokenSecret string `env:"API_TOKEN_SECRET"`

	// When set, the deletion history is kept in Redis instead of process memory
	RedisAddr       string `env:"REDIS_ADDR"`
	HistoryRedisKey string `env:"HISTORY_REDIS_KEY" envDefault:"classplanner:deleted-sessions"`

	// Requests per client per minute on /api routes, 0 disables limiting
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	CurrentLessonTTL time.Duration `env:"CURRENT_LESSON_TTL" envDefault:"30s"`
	Timezone         string        `env:"TIMEZONE" envDefault:"Local"`
	DefaultStartTime string        `env:"DEFAULT_START_TIME" envDefault:"08:00"`

	ServiceName  string `env:"SERVICE_NAME" envDefault:"classplanner"`
	OtelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OtelExporter string `env:"OTEL_EXPORTER" envDefault:"stdout"`
	OtelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	dotEnv := os.Getenv("DOTENV_PATH")
	if dotEnv == "" {
		dotEnv = ".env"
	}
	if _, err := os.Stat(dotEnv); err == nil {
		if err := godotenv.Load(dotEnv); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", dotEnv, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Location resolves the configured timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c *Config) validate() error {
	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3", "memory", "":
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType)
		}
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE %q", c.DatabaseType)
	}

	if c.CurrentLessonTTL < 0 {
		return fmt.Errorf("CURRENT_LESSON_TTL must not be negative, got %s", c.CurrentLessonTTL)
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}

	if _, err := time.Parse("15:04", c.DefaultStartTime); err != nil {
		return fmt.Errorf("DEFAULT_START_TIME must be HH:MM, got %q", c.DefaultStartTime)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}

	switch strings.ToLower(c.OtelExporter) {
	case "stdout", "otlp":
	default:
		return fmt.Errorf("OTEL_EXPORTER must be stdout or otlp, got %q", c.OtelExporter)
	}

	return nil
}
