package story

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetchCall struct {
	chapter string
	lang    string
}

type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string]*Content
	errs  map[string]error
	calls []fetchCall
}

func (f *fakeFetcher) Fetch(ctx context.Context, chapterID, lang string) (*Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fetchCall{chapterID, lang})
	if err := f.errs[lang]; err != nil {
		return nil, err
	}
	doc, ok := f.docs[lang]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestLoad_MergesAndFallsBack(t *testing.T) {
	en := &Content{
		Meta:    Meta{ChapterID: "chapter1", Lang: "en"},
		Strings: Strings{StartBtn: "Begin", Text: map[string]string{"t1": "Hi."}},
	}
	f := &fakeFetcher{
		docs: map[string]*Content{"tw": newTestContent("tw"), "en": en},
		errs: map[string]error{"jp": errors.New("connection reset")},
	}
	var logs bytes.Buffer

	set, err := Load(context.Background(), f, "chapter1", []string{"en", "tw", "jp"}, WithLogger(testLogger(&logs)))
	require.NoError(t, err)

	assert.Equal(t, "tw", set.Base, "canonical default wins even when not first")
	require.Len(t, set.Languages, 3)

	merged, ok := set.Content("en")
	require.True(t, ok)
	assert.Equal(t, "Begin", merged.Strings.StartBtn)
	assert.Equal(t, "Hi.", merged.Strings.Text["t1"])
	assert.Equal(t, "Welcome to the shrine.", merged.Strings.Text["t2"])
	assert.Len(t, merged.Nodes, len(set.Languages["tw"].Nodes))

	jp, ok := set.Content("jp")
	require.True(t, ok)
	assert.Equal(t, "jp", jp.Meta.Lang)
	assert.Equal(t, "Hello.", jp.Strings.Text["t1"])

	assert.Contains(t, logs.String(), "Story locale load failed")
	assert.Equal(t, fetchCall{"chapter1", "tw"}, f.calls[0])
}

func TestLoad_MissingLocaleIsWarning(t *testing.T) {
	f := &fakeFetcher{docs: map[string]*Content{"tw": newTestContent("tw")}}
	var logs bytes.Buffer

	set, err := Load(context.Background(), f, "chapter1", nil, WithLogger(testLogger(&logs)))
	require.NoError(t, err)
	assert.ElementsMatch(t, DefaultLanguages, mapKeys(set.Languages))
	assert.Contains(t, logs.String(), "Story locale missing")
}

func TestLoad_BaseIsFirstRequestedWithoutDefault(t *testing.T) {
	f := &fakeFetcher{docs: map[string]*Content{"en": newTestContent("en")}}

	set, err := Load(context.Background(), f, "chapter1", []string{"en", "jp", "en"})
	require.NoError(t, err)
	assert.Equal(t, "en", set.Base)
	assert.Len(t, set.Languages, 2)
	assert.Len(t, f.calls, 2, "duplicate language codes load once")
}

func TestLoad_BaseFailureIsFatal(t *testing.T) {
	f := &fakeFetcher{docs: map[string]*Content{"en": newTestContent("en")}}

	_, err := Load(context.Background(), f, "chapter1", []string{"tw", "en"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "chapter1.tw")
}

func TestLoad_NilBaseDocumentIsFatal(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, chapterID, lang string) (*Content, error) {
		return nil, nil
	})
	_, err := Load(context.Background(), f, "chapter1", []string{"tw"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoad_ValidationAggregatesAcrossLanguages(t *testing.T) {
	base := newTestContent("tw")
	base.Nodes[0].NextNodeID = "missing"
	en := &Content{Nodes: []Node{{ID: "e1", Type: NodeLine, TextKey: "t1"}}}
	f := &fakeFetcher{docs: map[string]*Content{"tw": base, "en": en}}

	_, err := Load(context.Background(), f, "chapter1", []string{"tw", "en"})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "[tw] missing reference: l1 -> missing")
	assert.Contains(t, verr.Errors, "[en] node e1: nextNodeId is required for line")
	assert.Contains(t, verr.Errors, "[en] entryNode l1 does not exist")
}

func TestLoad_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := FetcherFunc(func(_ context.Context, chapterID, lang string) (*Content, error) {
		if lang == "tw" {
			return newTestContent("tw"), nil
		}
		cancel()
		return nil, context.Canceled
	})

	_, err := Load(ctx, f, "chapter1", []string{"tw", "en"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBaseLanguage(t *testing.T) {
	assert.Equal(t, "tw", BaseLanguage([]string{"en", "tw"}, "tw"))
	assert.Equal(t, "en", BaseLanguage([]string{"en", "jp"}, "tw"))
	assert.Equal(t, "tw", BaseLanguage(nil, "tw"))
}

func mapKeys(m map[string]*Content) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
