package storage

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/chapter-engine/internal/config"
	"github.com/jwebster45206/chapter-engine/pkg/storage"
)

// New builds the content store selected by cfg, optionally fronted by a
// Redis read-through cache.
func New(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("content_source", cfg.ContentSource)

	var origin storage.Storage
	switch cfg.ContentSource {
	case config.SourceFile:
		origin = NewFileStorage(cfg.ContentDir, logger)
	case config.SourceHTTP:
		h, err := NewHTTPStorage(cfg.ContentBaseURL, nil, cfg.ContentTimeout, logger)
		if err != nil {
			return nil, err
		}
		origin = h
	case config.SourceRedis:
		r, err := NewRedisStorage(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		origin = r
	default:
		return nil, fmt.Errorf("unsupported content source: %q", cfg.ContentSource)
	}

	if !cfg.CacheEnabled() {
		log.Debug("Content store ready")
		return origin, nil
	}

	cache, err := NewRedisStorage(cfg.RedisURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create story cache: %w", err)
	}
	log.Debug("Content store ready", "cache_ttl", cfg.ContentCacheTTL.String())
	return NewCachedStorage(origin, cache, cfg.ContentCacheTTL, logger), nil
}
