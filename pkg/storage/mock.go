package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jwebster45206/chapter-engine/pkg/story"
)

// MockStorage is an in-memory Storage for tests and offline play
type MockStorage struct {
	mu          sync.RWMutex
	docs        map[string]*story.Content
	fetchErrors map[string]error
	calls       map[string]int
	pingError   error
}

// Ensure MockStorage implements Storage and Publisher
var (
	_ Storage   = (*MockStorage)(nil)
	_ Publisher = (*MockStorage)(nil)
)

// NewMockStorage creates a new mock storage holding docs
func NewMockStorage(docs ...*story.Content) *MockStorage {
	m := &MockStorage{
		docs:        make(map[string]*story.Content),
		fetchErrors: make(map[string]error),
		calls:       make(map[string]int),
	}
	for _, d := range docs {
		m.Put(d)
	}
	return m
}

// Put stores a copy of c under its meta chapter id and language
func (m *MockStorage) Put(c *story.Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[DocumentName(c.Meta.ChapterID, c.Meta.Lang)] = c.Clone()
}

// SetFetchError makes every fetch of chapterID/lang fail with err
func (m *MockStorage) SetFetchError(chapterID, lang string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErrors[DocumentName(chapterID, lang)] = err
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Calls returns how many times chapterID/lang was fetched
func (m *MockStorage) Calls(chapterID, lang string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[DocumentName(chapterID, lang)]
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// Fetch returns a copy of the stored document
func (m *MockStorage) Fetch(ctx context.Context, chapterID, lang string) (*story.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := DocumentName(chapterID, lang)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
	if err := m.fetchErrors[name]; err != nil {
		return nil, err
	}
	doc, ok := m.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return doc.Clone(), nil
}

// Store implements Publisher
func (m *MockStorage) Store(ctx context.Context, c *story.Content) error {
	if c == nil {
		return errors.New("content cannot be nil")
	}
	m.Put(c)
	return nil
}
