package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/chapter-engine/pkg/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces story documents in Redis.
const KeyPrefix = "story:"

// RedisStorage implements the Storage interface using Redis. Documents are
// stored as JSON under story:<chapter>:<lang>.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage and Publisher
var (
	_ storage.Storage   = (*RedisStorage)(nil)
	_ storage.Publisher = (*RedisStorage)(nil)
)

// NewRedisStorage creates a new Redis storage instance. redisURL is either
// a redis:// URL or a bare host:port address.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		opts = parsed
	}
	return NewRedisStorageFromClient(redis.NewClient(opts), logger), nil
}

// NewRedisStorageFromClient wraps an existing client.
func NewRedisStorageFromClient(client *redis.Client, logger *slog.Logger) *RedisStorage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStorage{client: client, logger: logger}
}

// WithTTL returns a copy of r whose Store calls expire after ttl. Zero
// means no expiry.
func (r *RedisStorage) WithTTL(ttl time.Duration) *RedisStorage {
	cp := *r
	cp.ttl = ttl
	return &cp
}

// Key returns the Redis key for a document.
func Key(chapterID, lang string) string {
	return KeyPrefix + chapterID + ":" + lang
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	cmd := r.client.Ping(ctx)
	if err := cmd.Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	if maxRetries <= 0 {
		maxRetries = 30
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Document operations

func (r *RedisStorage) Fetch(ctx context.Context, chapterID, lang string) (*story.Content, error) {
	key := Key(chapterID, lang)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		r.logger.Error("Failed to load story document", "key", key, "error", err)
		return nil, fmt.Errorf("failed to load story document %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
	}

	c, err := Decode(data, FormatJSON)
	if err != nil {
		r.logger.Error("Failed to unmarshal story document", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal story document %s: %w", key, err)
	}
	return c, nil
}

func (r *RedisStorage) Store(ctx context.Context, c *story.Content) error {
	if c == nil {
		return errors.New("content cannot be nil")
	}
	return r.put(ctx, Key(c.Meta.ChapterID, c.Meta.Lang), c)
}

func (r *RedisStorage) put(ctx context.Context, key string, c *story.Content) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal story document: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save story document", "key", key, "error", err)
		return fmt.Errorf("failed to save story document %s: %w", key, err)
	}
	return nil
}

// Delete removes one document.
func (r *RedisStorage) Delete(ctx context.Context, chapterID, lang string) error {
	key := Key(chapterID, lang)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("Failed to delete story document", "key", key, "error", err)
		return fmt.Errorf("failed to delete story document %s: %w", key, err)
	}
	return nil
}
