package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jwebster45206/chapter-engine/internal/config"
	"github.com/jwebster45206/chapter-engine/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	log     *slog.Logger
	dirFlag string
)

var rootCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate chapter story documents",
	Long: "validate checks story documents for strict decoding and structural integrity. " +
		"Without arguments every document in the content directory is checked.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		if dirFlag != "" {
			cfg.ContentDir = dirFlag
		}
		log = logger.SetupWriter(cfg, os.Stderr)
		return nil
	},
	RunE: runFiles,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Content directory (default $CONTENT_DIR)")
	rootCmd.AddCommand(chapterCmd)
	rootCmd.AddCommand(publishCmd)
}
