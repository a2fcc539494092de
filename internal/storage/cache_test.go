package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jwebster45206/chapter-engine/pkg/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedStorage_ReadThrough(t *testing.T) {
	cache, mr := setupTestRedis(t)
	origin := storage.NewMockStorage(testDoc("tw"))
	c := NewCachedStorage(origin, cache, time.Hour, quietLogger())
	ctx := context.Background()

	first, err := c.Fetch(ctx, "chapter1", "tw")
	require.NoError(t, err)
	assert.Equal(t, 1, origin.Calls("chapter1", "tw"))
	assert.True(t, mr.Exists("story:chapter1:tw"))
	assert.Equal(t, time.Hour, mr.TTL("story:chapter1:tw"))

	second, err := c.Fetch(ctx, "chapter1", "tw")
	require.NoError(t, err)
	assert.Equal(t, 1, origin.Calls("chapter1", "tw"), "second fetch is served from cache")
	assert.Equal(t, first, second)
}

func TestCachedStorage_MissesAreNotCached(t *testing.T) {
	cache, mr := setupTestRedis(t)
	origin := storage.NewMockStorage()
	c := NewCachedStorage(origin, cache, time.Hour, quietLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(ctx, "chapter1", "en")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	assert.Equal(t, 2, origin.Calls("chapter1", "en"))
	assert.False(t, mr.Exists("story:chapter1:en"))
}

func TestCachedStorage_CacheOutageIsBypassed(t *testing.T) {
	cache, mr := setupTestRedis(t)
	origin := storage.NewMockStorage(testDoc("tw"))
	c := NewCachedStorage(origin, cache, time.Hour, quietLogger())
	ctx := context.Background()

	mr.Close()
	got, err := c.Fetch(ctx, "chapter1", "tw")
	require.NoError(t, err)
	assert.Equal(t, "Hi tw", got.Strings.Text["t1"])
	assert.NoError(t, c.Ping(ctx), "cache outage does not fail health")
}

func TestCachedStorage_OriginErrorPropagates(t *testing.T) {
	cache, _ := setupTestRedis(t)
	origin := storage.NewMockStorage()
	boom := errors.New("origin down")
	origin.SetFetchError("chapter1", "tw", boom)
	c := NewCachedStorage(origin, cache, time.Hour, quietLogger())

	_, err := c.Fetch(context.Background(), "chapter1", "tw")
	assert.ErrorIs(t, err, boom)
}

func TestCachedStorage_PublishAndInvalidate(t *testing.T) {
	cache, _ := setupTestRedis(t)
	origin := storage.NewMockStorage(testDoc("jp"))
	c := NewCachedStorage(origin, cache, time.Hour, quietLogger())
	ctx := context.Background()

	published := testDoc("jp")
	published.Strings.Text["t1"] = "published"
	require.NoError(t, c.Store(ctx, published))

	got, err := c.Fetch(ctx, "chapter1", "jp")
	require.NoError(t, err)
	assert.Equal(t, "published", got.Strings.Text["t1"])
	assert.Zero(t, origin.Calls("chapter1", "jp"))

	require.NoError(t, c.Invalidate(ctx, "chapter1", "jp"))
	got, err = c.Fetch(ctx, "chapter1", "jp")
	require.NoError(t, err)
	assert.Equal(t, "Hi jp", got.Strings.Text["t1"])
}

func TestCachedStorage_DrivesLoad(t *testing.T) {
	cache, _ := setupTestRedis(t)
	origin := storage.NewMockStorage(testDoc("tw"), testDoc("en"))
	c := NewCachedStorage(origin, cache, time.Hour, quietLogger())

	for i := 0; i < 2; i++ {
		set, err := story.Load(context.Background(), c, "chapter1", nil, story.WithLogger(quietLogger()))
		require.NoError(t, err)
		assert.Equal(t, "Hi en", set.Languages["en"].Strings.Text["t1"])
		assert.Equal(t, "Hi tw", set.Languages["jp"].Strings.Text["t1"], "missing jp falls back to base")
	}
	assert.Equal(t, 1, origin.Calls("chapter1", "tw"))
	assert.Equal(t, 2, origin.Calls("chapter1", "jp"))
}
