// Package cli wires the docqa commands: the interactive TUI at the root and
// one-shot search, compare and document utilities below it.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/config"
	"github.com/csheth/docqa/internal/logging"
	"github.com/csheth/docqa/internal/rag"
)

var version = "dev"

var (
	configPath  string
	backendURL  string
	topK        int
	verbose     bool
	logFile     string
	noAltScreen bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions of indexed PDF documents",
	Long: `docqa is a terminal client for a retrieval-augmented question answering backend.
Run it without arguments for the interactive view, or use a subcommand for one-shot
searches and comparisons.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to config.toml (default: user config dir)")
	flags.StringVar(&backendURL, "backend", "", "RAG backend base URL")
	flags.IntVar(&topK, "top-k", 0, "number of source chunks to request")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
	rootCmd.Flags().BoolVar(&noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
}

// Execute runs the command tree. Command output goes to stdout so it can be
// piped; errors and logs stay on stderr.
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// SetVersion overrides the reported build version.
func SetVersion(v string) {
	if strings.TrimSpace(v) != "" {
		version = v
	}
}

// loadSettings resolves config file, environment and flags, in that order.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("backend") {
		cfg.BackendURL = backendURL
	}
	if cmd.Flags().Changed("top-k") {
		cfg.TopK = topK
	}
	if cmd.Flags().Changed("log-file") {
		cfg.LogFile = logFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// commandLogger logs to stderr for one-shot commands.
func commandLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if !verbose && level < slog.LevelWarn {
		// Keep one-shot output clean unless asked.
		level = slog.LevelWarn
	}
	return logging.New(cmd.ErrOrStderr(), level)
}

type environment struct {
	cfg     config.Config
	catalog *catalog.Catalog
	client  *rag.Client
	log     *slog.Logger
}

func newEnvironment(cmd *cobra.Command, logger func(*cobra.Command, config.Config) *slog.Logger) (*environment, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	log := logger(cmd, cfg)
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = log
	client, err := rag.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, catalog: cat, client: client, log: log}, nil
}

func resolveDocument(cat *catalog.Catalog, id string, fallback int) (catalog.Document, error) {
	if strings.TrimSpace(id) == "" {
		return cat.At(fallback), nil
	}
	doc, err := cat.Resolve(id)
	if err != nil {
		return catalog.Document{}, fmt.Errorf("%w (known: %s)", err, strings.Join(cat.IDs(), ", "))
	}
	return doc, nil
}

func printWrapped(w io.Writer, indent, text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		fmt.Fprintf(w, "%s%s\n", indent, line)
	}
}
