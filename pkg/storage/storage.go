package storage

import (
	"context"

	"github.com/jwebster45206/chapter-engine/pkg/story"
)

// ErrNotFound is returned when a store holds no document for the requested
// chapter and language.
var ErrNotFound = story.ErrNotFound

// Storage defines a content store for chapter documents.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	story.Fetcher
}

// Publisher is implemented by stores that accept documents.
type Publisher interface {
	Store(ctx context.Context, content *story.Content) error
}

// DocumentName returns the canonical "<chapter>.<lang>" document name used
// by file names, URLs and cache keys.
func DocumentName(chapterID, lang string) string {
	return chapterID + "." + lang
}
