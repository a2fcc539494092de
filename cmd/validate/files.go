package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/chapter-engine/internal/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
	"github.com/spf13/cobra"
)

var validNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)

// FileReport is the outcome of validating one document file.
type FileReport struct {
	Path   string
	Errors []string
}

func (r FileReport) OK() bool { return len(r.Errors) == 0 }

func runFiles(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		docs, err := storage.NewFileStorage(cfg.ContentDir, log).List(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range docs {
			paths = append(paths, d.Path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no story documents found in %s", cfg.ContentDir)
	}

	reports := make([]FileReport, 0, len(paths))
	for _, p := range paths {
		reports = append(reports, validateFile(p))
	}
	if failed := printReports(cmd.OutOrStdout(), cmd.ErrOrStderr(), reports); failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(reports))
	}
	return nil
}

// validateFile decodes one document strictly and runs the structural
// validator over it. Every problem found is collected.
func validateFile(path string) FileReport {
	report := FileReport{Path: path}
	fail := func(format string, args ...any) {
		report.Errors = append(report.Errors, fmt.Sprintf(format, args...))
	}

	format, ok := storage.FormatOf(path)
	if !ok {
		fail("unsupported file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
		return report
	}
	chapterID, lang, named := storage.ParseDocumentName(path)
	if !named {
		fail("file name must look like <chapter>.<lang>%s", filepath.Ext(path))
	} else if !validNameRegex.MatchString(chapterID) {
		fail("chapter id '%s' in file name should be lowercase snake_case", chapterID)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fail("failed to read file: %v", err)
		return report
	}
	c, err := storage.Decode(data, format)
	if err != nil {
		fail("%v", err)
		return report
	}

	report.Errors = append(report.Errors, story.ValidateContent(c).Errors...)
	if named && c.Meta.ChapterID != "" && c.Meta.Lang != "" &&
		(c.Meta.ChapterID != chapterID || c.Meta.Lang != lang) {
		fail("meta %s.%s does not match file name", c.Meta.ChapterID, c.Meta.Lang)
	}
	return report
}

// printReports writes one line per passing file and an indented error list
// per failing file. It returns the number of failures.
func printReports(out, errOut io.Writer, reports []FileReport) int {
	failed := 0
	for _, r := range reports {
		name := filepath.Base(r.Path)
		if r.OK() {
			fmt.Fprintf(out, "%s: OK\n", name)
			continue
		}
		failed++
		fmt.Fprintf(errOut, "%s:\n", name)
		for _, e := range r.Errors {
			fmt.Fprintf(errOut, "  - %s\n", e)
		}
	}
	return failed
}

// loadChapter loads and validates every requested language of a chapter
// from the content directory.
func loadChapter(ctx context.Context, dir, chapterID string, langs []string, base string) (*story.Set, error) {
	fs := storage.NewFileStorage(dir, log)
	set, err := story.Load(ctx, fs, chapterID, langs, story.WithDefaultLanguage(base), story.WithLogger(log))
	if err != nil {
		var verr *story.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("chapter %s is invalid:\n  - %s", chapterID, strings.Join(verr.Errors, "\n  - "))
		}
		return nil, err
	}
	return set, nil
}
