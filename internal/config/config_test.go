package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "chapter1", cfg.ChapterID)
	assert.Equal(t, []string{"tw", "en", "jp"}, cfg.Languages)
	assert.Equal(t, "tw", cfg.BaseLanguage)
	assert.Equal(t, SourceFile, cfg.ContentSource)
	assert.Equal(t, "./data/chapters", cfg.ContentDir)
	assert.Equal(t, 10*time.Second, cfg.ContentTimeout)
	assert.Zero(t, cfg.ContentCacheTTL)
	assert.False(t, cfg.CacheEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("STORY_LANGS", " EN, jp,en ,")
	t.Setenv("CONTENT_SOURCE", "HTTP")
	t.Setenv("CONTENT_BASE_URL", "https://cdn.example.com/story")
	t.Setenv("CONTENT_CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, []string{"en", "jp"}, cfg.Languages)
	assert.Equal(t, SourceHTTP, cfg.ContentSource)
	assert.Equal(t, 5*time.Minute, cfg.ContentCacheTTL)
	assert.True(t, cfg.CacheEnabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		contains string
	}{
		{"bad duration", map[string]string{"CONTENT_CACHE_TTL": "soon"}, "parse env:"},
		{"unknown source", map[string]string{"CONTENT_SOURCE": "ftp"}, "unsupported content source"},
		{"http without url", map[string]string{"CONTENT_SOURCE": "http"}, "CONTENT_BASE_URL is required"},
		{"negative ttl", map[string]string{"CONTENT_CACHE_TTL": "-1s"}, "must not be negative"},
		{"no languages", map[string]string{"STORY_LANGS": " , "}, "at least one language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestCacheEnabled_RedisSourceNeverCaches(t *testing.T) {
	cfg := &Config{ContentSource: SourceRedis, RedisURL: "localhost:6379", ContentCacheTTL: time.Minute}
	assert.False(t, cfg.CacheEnabled())
}
