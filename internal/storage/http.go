package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jwebster45206/chapter-engine/pkg/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
)

// maxDocumentBytes bounds a single fetched document.
const maxDocumentBytes = 4 << 20

// HTTPStorage fetches <base>/<chapter>.<lang>.json over HTTP. Requests
// bypass intermediary caches so edited content is picked up at once.
type HTTPStorage struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Ensure HTTPStorage implements Storage
var _ storage.Storage = (*HTTPStorage)(nil)

// NewHTTPStorage creates an HTTP store. A nil client gets a default client
// with the given timeout.
func NewHTTPStorage(baseURL string, client *http.Client, timeout time.Duration, logger *slog.Logger) (*HTTPStorage, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid content base URL: %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPStorage{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}, nil
}

// URL returns the document URL for chapterID and lang.
func (h *HTTPStorage) URL(chapterID, lang string) string {
	return h.baseURL + "/" + url.PathEscape(storage.DocumentName(chapterID, lang)) + ".json"
}

func (h *HTTPStorage) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("content server ping failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("content server ping failed: %s", resp.Status)
	}
	return nil
}

func (h *HTTPStorage) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func (h *HTTPStorage) Fetch(ctx context.Context, chapterID, lang string) (*story.Content, error) {
	target := h.URL(chapterID, lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, target)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", target, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}
	if len(data) > maxDocumentBytes {
		return nil, fmt.Errorf("document %s exceeds %d bytes", target, maxDocumentBytes)
	}

	c, err := Decode(data, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", target, err)
	}
	h.logger.Debug("Story document fetched", "url", target, "duration_ms", time.Since(start).Milliseconds())
	return c, nil
}
