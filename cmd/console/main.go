package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/chapter-engine/internal/config"
	"github.com/jwebster45206/chapter-engine/internal/game"
	"github.com/jwebster45206/chapter-engine/internal/logger"
	"github.com/jwebster45206/chapter-engine/internal/storage"
	"github.com/jwebster45206/chapter-engine/pkg/story"
	"github.com/jwebster45206/chapter-engine/pkg/transition"
)

type ConsoleConfig struct {
	*config.Config
	LogFile     string
	LoadTimeout time.Duration
}

func main() {
	base, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg := &ConsoleConfig{
		Config:      base,
		LogFile:     getEnv("CONSOLE_LOG_FILE", filepath.Join(os.TempDir(), "chapter-console.log")),
		LoadTimeout: 30 * time.Second,
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", cfg.LogFile, err)
		os.Exit(1)
	}
	defer func() {
		_ = logFile.Close() // Ignore error in defer
	}()
	log := logger.SetupWriter(cfg.Config, logFile)

	engine, err := loadEngine(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load chapter %s: %v\n", cfg.ChapterID, err)
		os.Exit(1)
	}

	var p *tea.Program
	overlay := transition.NewOverlay(nil)
	session := game.New(engine,
		game.WithLogger(log),
		game.WithCurtain(overlay),
		game.WithOnChange(func(v game.View) {
			if p != nil {
				p.Send(viewMsg(v))
			}
		}),
	)

	p = tea.NewProgram(NewConsoleUI(session, overlay), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// loadEngine fetches the configured chapter and picks the start language
// from the user's locale.
func loadEngine(cfg *ConsoleConfig, log *slog.Logger) (*story.Engine, error) {
	store, err := storage.New(cfg.Config, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = store.Close() // Ignore error in defer
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LoadTimeout)
	defer cancel()

	set, err := story.Load(ctx, store, cfg.ChapterID, cfg.Languages,
		story.WithDefaultLanguage(cfg.BaseLanguage),
		story.WithLogger(logger.WithChapter(log, cfg.ChapterID, cfg.BaseLanguage)))
	if err != nil {
		return nil, err
	}

	available := []string{set.Base}
	for _, l := range cfg.Languages {
		if !slices.Contains(available, l) {
			available = append(available, l)
		}
	}
	lang := story.MatchLanguage(available, os.Getenv("LC_ALL"), os.Getenv("LANG"))
	log.Info("Chapter loaded", "chapter_id", cfg.ChapterID, "lang", lang)
	return story.NewEngine(set, lang), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
