package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultLanguage is the canonical base language of every chapter.
const DefaultLanguage = "tw"

// DefaultLanguages is the language list used when a load requests none.
var DefaultLanguages = []string{"tw", "en", "jp"}

// ErrNotFound is returned by a Fetcher when no document exists for the
// requested chapter and language.
var ErrNotFound = errors.New("story document not found")

// Fetcher retrieves one parsed document by chapter and language. The
// transport behind it is irrelevant to the engine.
type Fetcher interface {
	Fetch(ctx context.Context, chapterID, lang string) (*Content, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, chapterID, lang string) (*Content, error)

func (f FetcherFunc) Fetch(ctx context.Context, chapterID, lang string) (*Content, error) {
	return f(ctx, chapterID, lang)
}

type loadOptions struct {
	defaultLang string
	logger      *slog.Logger
}

// LoadOption customises Load.
type LoadOption func(*loadOptions)

// WithDefaultLanguage overrides the canonical base language.
func WithDefaultLanguage(lang string) LoadOption {
	return func(o *loadOptions) {
		if lang != "" {
			o.defaultLang = lang
		}
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// BaseLanguage picks the base language for a request: the canonical
// default when requested, otherwise the first requested language.
func BaseLanguage(langs []string, defaultLang string) string {
	for _, l := range langs {
		if l == defaultLang {
			return defaultLang
		}
	}
	if len(langs) == 0 {
		return defaultLang
	}
	return langs[0]
}

// Load fetches every requested language of a chapter, merges each onto the
// base language and validates the resulting set. A base fetch failure or any
// validation failure is fatal. Missing or failing localized documents fall
// back to a copy of the base document.
func Load(ctx context.Context, f Fetcher, chapterID string, langs []string, opts ...LoadOption) (*Set, error) {
	o := loadOptions{defaultLang: DefaultLanguage, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if len(langs) == 0 {
		langs = DefaultLanguages
	}

	baseLang := BaseLanguage(langs, o.defaultLang)
	log := o.logger.With("chapter_id", chapterID, "base_lang", baseLang)

	base, err := f.Fetch(ctx, chapterID, baseLang)
	if err == nil && base == nil {
		err = ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load base story content %s.%s: %w", chapterID, baseLang, err)
	}

	set := &Set{
		Base:      baseLang,
		Languages: map[string]*Content{baseLang: base},
	}

	for _, lang := range langs {
		if _, done := set.Languages[lang]; done {
			continue
		}
		localized, err := f.Fetch(ctx, chapterID, lang)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("story load cancelled: %w", ctxErr)
		}
		switch {
		case err != nil && !errors.Is(err, ErrNotFound):
			log.Warn("Story locale load failed, falling back to base", "lang", lang, "error", err)
			localized = nil
		case err != nil || localized == nil:
			log.Warn("Story locale missing, falling back to base", "lang", lang)
			localized = nil
		}

		set.Languages[lang] = MergeWithBase(base, localized, lang)
	}

	if err := ValidateSet(set).Err(); err != nil {
		return nil, err
	}

	log.Info("Story set loaded", "languages", len(set.Languages))
	return set, nil
}
