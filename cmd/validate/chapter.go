package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jwebster45206/chapter-engine/internal/storage"
	"github.com/spf13/cobra"
)

var (
	chapterLangs []string
	chapterBase  string
)

var chapterCmd = &cobra.Command{
	Use:   "chapter [chapter-id...]",
	Short: "Load and validate whole chapters",
	Long: "chapter loads every requested language of a chapter, merges each onto the base " +
		"language and validates the resulting set. Without arguments every chapter in the " +
		"content directory is checked.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := args
		if len(ids) == 0 {
			docs, err := storage.NewFileStorage(cfg.ContentDir, log).List(cmd.Context())
			if err != nil {
				return err
			}
			ids = slices.Sorted(maps.Keys(storage.Chapters(docs)))
		}
		if len(ids) == 0 {
			return fmt.Errorf("no chapters found in %s", cfg.ContentDir)
		}

		langs, base := chapterLangs, chapterBase
		if len(langs) == 0 {
			langs = cfg.Languages
		}
		if base == "" {
			base = cfg.BaseLanguage
		}

		failed := 0
		for _, id := range ids {
			set, err := loadChapter(cmd.Context(), cfg.ContentDir, id, langs, base)
			if err != nil {
				failed++
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				continue
			}
			got := slices.Sorted(maps.Keys(set.Languages))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (base %s; %s)\n", id, set.Base, strings.Join(got, ", "))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d chapters failed validation", failed, len(ids))
		}
		return nil
	},
}

func init() {
	chapterCmd.Flags().StringSliceVar(&chapterLangs, "langs", nil, "Languages to load (default $STORY_LANGS)")
	chapterCmd.Flags().StringVar(&chapterBase, "base", "", "Base language (default $STORY_BASE_LANG)")
}
