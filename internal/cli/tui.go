package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/csheth/docqa/internal/docstore"
	"github.com/csheth/docqa/internal/logging"
	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
	"github.com/csheth/docqa/internal/tui"
)

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	// The terminal belongs to the TUI, so logs only go to a file.
	logger, closer, err := logging.OpenFile(cfg.LogFile, level)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closer.Close()

	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger.With("component", "rag")
	client, err := rag.NewClient(clientCfg)
	if err != nil {
		return err
	}
	pages, err := docstore.New(cfg.CacheDir, nil, logger.With("component", "docstore"))
	if err != nil {
		logger.Warn("page previews disabled", "error", err)
	}

	tuiCfg := tui.Config{
		Session:        session.New(client, session.WithLogger(logger.With("component", "session"))),
		Catalog:        cat,
		Summaries:      rag.NewSummaryCache(client),
		TranscriptPath: cfg.TranscriptPath,
		TopK:           cfg.TopK,
		Logger:         logger.With("component", "tui"),
	}
	if pages != nil {
		tuiCfg.Pages = pages
	}

	opts := []tea.ProgramOption{tea.WithContext(cmd.Context())}
	if !noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	logger.Info("starting", "backend", cfg.BackendURL, "documents", cat.Len())
	if _, err := tea.NewProgram(tui.New(tuiCfg), opts...).Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
