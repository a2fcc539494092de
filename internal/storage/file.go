package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/jwebster45206/chapter-engine/pkg/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
)

// FileStorage reads chapter documents from a directory laid out as
// <dir>/<chapter>.<lang>.json, with .yaml and .yml accepted as fallbacks.
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

// Ensure FileStorage implements Storage and Publisher
var (
	_ storage.Storage   = (*FileStorage)(nil)
	_ storage.Publisher = (*FileStorage)(nil)
)

// NewFileStorage creates a filesystem store rooted at dir
func NewFileStorage(dir string, logger *slog.Logger) *FileStorage {
	if dir == "" {
		dir = "./data/chapters"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{dir: dir, logger: logger}
}

// Dir returns the content directory.
func (f *FileStorage) Dir() string { return f.dir }

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("content directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content path is not a directory: %s", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

// Fetch loads and strictly decodes one document.
func (f *FileStorage) Fetch(ctx context.Context, chapterID, lang string) (*story.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := storage.DocumentName(chapterID, lang)

	for _, ext := range extensions {
		path := filepath.Join(f.dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read story file %s: %w", path, err)
		}

		format, _ := FormatOf(path)
		c, err := Decode(data, format)
		if err != nil {
			return nil, fmt.Errorf("failed to parse story file %s: %w", path, err)
		}
		f.logger.Debug("Story document read", "path", path)
		return c, nil
	}

	return nil, fmt.Errorf("%w: %s in %s", storage.ErrNotFound, name, f.dir)
}

// Store writes c as JSON, replacing any existing document.
func (f *FileStorage) Store(ctx context.Context, c *story.Content) error {
	if c == nil {
		return errors.New("content cannot be nil")
	}
	data, err := Encode(c, FormatJSON)
	if err != nil {
		return fmt.Errorf("failed to marshal story content: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create content directory: %w", err)
	}
	path := filepath.Join(f.dir, storage.DocumentName(c.Meta.ChapterID, c.Meta.Lang)+".json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write story file %s: %w", path, err)
	}
	return nil
}

// Document identifies one file in the content directory.
type Document struct {
	ChapterID string
	Lang      string
	Path      string
}

// ParseDocumentName splits "<chapter>.<lang>.<ext>" into its parts.
func ParseDocumentName(path string) (chapterID, lang string, ok bool) {
	if _, known := FormatOf(path); !known {
		return "", "", false
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	i := strings.LastIndex(stem, ".")
	if i <= 0 || i == len(stem)-1 {
		return "", "", false
	}
	return stem[:i], stem[i+1:], true
}

// List returns every story document in the directory, sorted by path.
func (f *FileStorage) List(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := filepath.WalkDir(f.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != f.dir {
				return filepath.SkipDir
			}
			return nil
		}
		chapterID, lang, ok := ParseDocumentName(path)
		if !ok {
			f.logger.Debug("Skipping non-story file", "path", path)
			return nil
		}
		docs = append(docs, Document{ChapterID: chapterID, Lang: lang, Path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list story files: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// Chapters groups listed documents by chapter and returns the language
// codes found for each.
func Chapters(docs []Document) map[string][]string {
	out := make(map[string][]string)
	for _, d := range docs {
		if !slices.Contains(out[d.ChapterID], d.Lang) {
			out[d.ChapterID] = append(out[d.ChapterID], d.Lang)
		}
	}
	return out
}
