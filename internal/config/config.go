package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Content sources understood by the storage layer.
const (
	SourceFile  = "file"
	SourceHTTP  = "http"
	SourceRedis = "redis"
)

type Config struct {
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL"   envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	ChapterID    string   `env:"CHAPTER_ID"      envDefault:"chapter1"`
	Languages    []string `env:"STORY_LANGS"     envDefault:"tw,en,jp" envSeparator:","`
	BaseLanguage string   `env:"STORY_BASE_LANG" envDefault:"tw"`

	ContentSource   string        `env:"CONTENT_SOURCE"       envDefault:"file"`
	ContentDir      string        `env:"CONTENT_DIR"          envDefault:"./data/chapters"`
	ContentBaseURL  string        `env:"CONTENT_BASE_URL"`
	ContentTimeout  time.Duration `env:"CONTENT_HTTP_TIMEOUT" envDefault:"10s"`
	RedisURL        string        `env:"REDIS_URL"            envDefault:"localhost:6379"`
	ContentCacheTTL time.Duration `env:"CONTENT_CACHE_TTL"    envDefault:"0s"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.ContentSource = strings.ToLower(strings.TrimSpace(cfg.ContentSource))
	cfg.Languages = normalizeLanguages(cfg.Languages)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c *Config) Validate() error {
	switch c.ContentSource {
	case SourceFile:
		if c.ContentDir == "" {
			return fmt.Errorf("CONTENT_DIR is required for content source %q", c.ContentSource)
		}
	case SourceHTTP:
		if c.ContentBaseURL == "" {
			return fmt.Errorf("CONTENT_BASE_URL is required for content source %q", c.ContentSource)
		}
	case SourceRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for content source %q", c.ContentSource)
		}
	default:
		return fmt.Errorf("unsupported content source: %q", c.ContentSource)
	}
	if c.ContentCacheTTL < 0 {
		return fmt.Errorf("CONTENT_CACHE_TTL must not be negative: %s", c.ContentCacheTTL)
	}
	if len(c.Languages) == 0 {
		return fmt.Errorf("STORY_LANGS must name at least one language")
	}
	return nil
}

// CacheEnabled reports whether fetched documents are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.ContentCacheTTL > 0 && c.ContentSource != SourceRedis && c.RedisURL != ""
}

func normalizeLanguages(langs []string) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
