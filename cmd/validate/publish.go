package main

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jwebster45206/chapter-engine/internal/storage"
	"github.com/spf13/cobra"
)

var (
	publishRedisURL string
	publishTTL      time.Duration
)

var publishCmd = &cobra.Command{
	Use:   "publish <chapter-id>",
	Short: "Validate a chapter and publish it to Redis",
	Long: "publish loads a chapter from the content directory, validates it and writes every " +
		"merged language document to Redis under story:<chapter>:<lang>.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		chapterID := args[0]

		set, err := loadChapter(ctx, cfg.ContentDir, chapterID, cfg.Languages, cfg.BaseLanguage)
		if err != nil {
			return err
		}

		url := publishRedisURL
		if url == "" {
			url = cfg.RedisURL
		}
		rs, err := storage.NewRedisStorage(url, log)
		if err != nil {
			return err
		}
		defer func() {
			_ = rs.Close() // Ignore error in defer
		}()
		if err := rs.WaitForConnection(ctx, 5, time.Second); err != nil {
			return err
		}
		publisher := rs.WithTTL(publishTTL)

		for _, lang := range slices.Sorted(maps.Keys(set.Languages)) {
			if err := publisher.Store(ctx, set.Languages[lang]); err != nil {
				return fmt.Errorf("failed to publish %s.%s: %w", chapterID, lang, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", storage.Key(chapterID, lang))
		}
		return nil
	},
}

func init() {
	publishCmd.Flags().StringVar(&publishRedisURL, "redis", "", "Redis address or URL (default $REDIS_URL)")
	publishCmd.Flags().DurationVar(&publishTTL, "ttl", 0, "Expiry for published documents (0 keeps them)")
}
