package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jwebster45206/chapter-engine/pkg/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
)

// CachedStorage is a read-through cache in front of another store. Cache
// failures are logged and bypassed; only the origin can fail a fetch.
type CachedStorage struct {
	origin storage.Storage
	cache  *RedisStorage
	logger *slog.Logger
}

// Ensure CachedStorage implements Storage and Publisher
var (
	_ storage.Storage   = (*CachedStorage)(nil)
	_ storage.Publisher = (*CachedStorage)(nil)
)

// NewCachedStorage caches origin's documents in cache for ttl.
func NewCachedStorage(origin storage.Storage, cache *RedisStorage, ttl time.Duration, logger *slog.Logger) *CachedStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStorage{origin: origin, cache: cache.WithTTL(ttl), logger: logger}
}

// Ping reports origin health. An unreachable cache is only logged.
func (c *CachedStorage) Ping(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		c.logger.Warn("Story cache unavailable", "error", err)
	}
	return c.origin.Ping(ctx)
}

func (c *CachedStorage) Close() error {
	return errors.Join(c.origin.Close(), c.cache.Close())
}

func (c *CachedStorage) Fetch(ctx context.Context, chapterID, lang string) (*story.Content, error) {
	log := c.logger.With("chapter_id", chapterID, "lang", lang)

	doc, err := c.cache.Fetch(ctx, chapterID, lang)
	switch {
	case err == nil:
		log.Debug("Story cache hit")
		return doc, nil
	case !errors.Is(err, storage.ErrNotFound):
		log.Warn("Story cache read failed, using origin", "error", err)
	}

	doc, err = c.origin.Fetch(ctx, chapterID, lang)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	c.fill(ctx, log, chapterID, lang, doc)
	return doc, nil
}

func (c *CachedStorage) fill(ctx context.Context, log *slog.Logger, chapterID, lang string, doc *story.Content) {
	if err := c.cache.put(ctx, Key(chapterID, lang), doc); err != nil {
		log.Warn("Story cache write failed", "error", err)
	}
}

// Store publishes c into the cache so the next fetch is served from Redis.
func (c *CachedStorage) Store(ctx context.Context, doc *story.Content) error {
	return c.cache.Store(ctx, doc)
}

// Invalidate drops one cached document.
func (c *CachedStorage) Invalidate(ctx context.Context, chapterID, lang string) error {
	return c.cache.Delete(ctx, chapterID, lang)
}
