// Package config loads docqa settings from a TOML file, DOCQA_* environment
// variables and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/csheth/docqa/internal/catalog"
	"github.com/csheth/docqa/internal/rag"
)

const (
	// DefaultBackendURL points at a locally running RAG backend.
	DefaultBackendURL = "http://localhost:8080"
	// DefaultTimeout bounds a single backend request.
	DefaultTimeout = 2 * time.Minute
	envPrefix      = "DOCQA_"
	fileName       = "config.toml"
)

// Duration is a time.Duration written as a Go duration string ("90s").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the resolved set of settings.
type Config struct {
	BackendURL        string          `toml:"backend_url"`
	DocumentsURL      string          `toml:"documents_url"`
	TopK              int             `toml:"top_k"`
	Timeout           Duration        `toml:"timeout"`
	RequestsPerSecond float64         `toml:"requests_per_second"`
	LogLevel          string          `toml:"log_level"`
	LogFile           string          `toml:"log_file"`
	CacheDir          string          `toml:"cache_dir"`
	TranscriptPath    string          `toml:"transcript_path"`
	Documents         []catalog.Entry `toml:"documents"`
}

// Default returns the built-in settings.
func Default() Config {
	dir := defaultDir()
	return Config{
		BackendURL:     DefaultBackendURL,
		DocumentsURL:   catalog.DefaultBaseURL,
		TopK:           rag.DefaultTopK,
		Timeout:        Duration(DefaultTimeout),
		LogLevel:       "info",
		CacheDir:       filepath.Join(dir, "cache"),
		TranscriptPath: filepath.Join(dir, "transcripts.json"),
		Documents:      catalog.Defaults(),
	}
}

// DefaultPath is where Load looks when no explicit path is given.
func DefaultPath() string {
	return filepath.Join(defaultDir(), fileName)
}

func defaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "docqa")
	}
	return filepath.Join(".", ".docqa")
}

// Load resolves settings from path (or DefaultPath when empty) and the
// environment. A missing default file is not an error; a missing explicit one
// is.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if err := cfg.readFile(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		if err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fromFile Config
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.merge(fromFile)
	return nil
}

// merge copies the non-zero fields of other over c.
func (c *Config) merge(other Config) {
	if other.BackendURL != "" {
		c.BackendURL = other.BackendURL
	}
	if other.DocumentsURL != "" {
		c.DocumentsURL = other.DocumentsURL
	}
	if other.TopK != 0 {
		c.TopK = other.TopK
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
	}
	if other.RequestsPerSecond != 0 {
		c.RequestsPerSecond = other.RequestsPerSecond
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.CacheDir != "" {
		c.CacheDir = other.CacheDir
	}
	if other.TranscriptPath != "" {
		c.TranscriptPath = other.TranscriptPath
	}
	if len(other.Documents) > 0 {
		c.Documents = other.Documents
	}
}

// ApplyEnv overlays DOCQA_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("BACKEND_URL", &c.BackendURL)
	str("DOCUMENTS_URL", &c.DocumentsURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FILE", &c.LogFile)
	str("CACHE_DIR", &c.CacheDir)
	str("TRANSCRIPT_PATH", &c.TranscriptPath)

	if v, ok := lookup(envPrefix + "TOP_K"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sTOP_K: %w", envPrefix, err)
		}
		c.TopK = n
	}
	if v, ok := lookup(envPrefix + "TIMEOUT"); ok && v != "" {
		var d Duration
		if err := d.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("config: %sTIMEOUT: %w", envPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := lookup(envPrefix + "REQUESTS_PER_SECOND"); ok && v != "" {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("config: %sREQUESTS_PER_SECOND: %w", envPrefix, err)
		}
		c.RequestsPerSecond = rps
	}
	return nil
}

// Validate reports settings that cannot produce a working client.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("config: backend_url is required")
	}
	if c.TopK < 0 {
		return fmt.Errorf("config: top_k must not be negative, got %d", c.TopK)
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("config: requests_per_second must not be negative")
	}
	if len(c.Documents) == 0 {
		return errors.New("config: at least one document is required")
	}
	return nil
}

// Catalog builds the document catalog described by the settings.
func (c Config) Catalog() (*catalog.Catalog, error) {
	return catalog.New(c.DocumentsURL, c.Documents)
}

// ClientConfig returns the query client settings.
func (c Config) ClientConfig() rag.Config {
	return rag.Config{
		BaseURL:           c.BackendURL,
		Timeout:           time.Duration(c.Timeout),
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// Write persists c as TOML at path, creating parent directories.
func (c Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
