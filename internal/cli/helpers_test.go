package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

type testBackend struct {
	server     *httptest.Server
	configPath string
	dir        string
	lastBody   map[string]any
}

// setupTestBackend starts a fake RAG backend and writes a config file that
// points at it. It returns the flags every command invocation should carry.
func setupTestBackend(t *testing.T) (*testBackend, []string) {
	t.Helper()
	for _, name := range []string{"BACKEND_URL", "DOCUMENTS_URL", "LOG_LEVEL", "LOG_FILE", "CACHE_DIR", "TRANSCRIPT_PATH", "TOP_K", "TIMEOUT", "REQUESTS_PER_SECOND"} {
		t.Setenv("DOCQA_"+name, "")
	}
	resetFlags()

	tb := &testBackend{dir: t.TempDir()}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rag/search/", func(w http.ResponseWriter, r *http.Request) {
		tb.decode(r)
		if tb.lastBody["query"] == "explode" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"answer": "Production reaches 1.9 MMBOEPD.",
			"source_chunks": []map[string]any{
				{"Content": "[Page 12] Target production is 1.9 MMBOEPD.", "Page": 12},
				{"Content": "Capital plan overview.", "Page": "Unknown"},
			},
		})
	})
	mux.HandleFunc("/api/rag/compare/", func(w http.ResponseWriter, r *http.Request) {
		tb.decode(r)
		writeJSON(w, map[string]any{
			"response":           "Both documents discuss production.",
			"source_chunks_pdf1": []map[string]any{{"Content": "[Page 3] AIM growth.", "Page": "3"}},
			"source_chunks_pdf2": []map[string]any{{"Content": "[Page 40] Proxy pay.", "Page": "40"}},
		})
	})
	mux.HandleFunc("/api/rag/summaries", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"summaries": map[string]string{"pdf1": "Investor presentation on long-term plans."}})
	})
	tb.server = httptest.NewServer(mux)
	t.Cleanup(tb.server.Close)

	tb.configPath = filepath.Join(tb.dir, "config.toml")
	cfg := fmt.Sprintf("backend_url = %q\ncache_dir = %q\ntranscript_path = %q\n",
		tb.server.URL, filepath.Join(tb.dir, "cache"), tb.transcriptPath())
	require.NoError(t, os.WriteFile(tb.configPath, []byte(cfg), 0o600))
	return tb, []string{"--config", tb.configPath}
}

func (tb *testBackend) transcriptPath() string {
	return filepath.Join(tb.dir, "transcripts.json")
}

func (tb *testBackend) decode(r *http.Request) {
	tb.lastBody = map[string]any{}
	_ = json.NewDecoder(r.Body).Decode(&tb.lastBody)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// resetFlags restores every flag to its default so tests do not leak state
// through the shared command tree.
func resetFlags() {
	var walk func(*cobra.Command)
	walk = func(cmd *cobra.Command) {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		cmd.Flags().VisitAll(reset)
		cmd.PersistentFlags().VisitAll(reset)
		for _, child := range cmd.Commands() {
			walk(child)
		}
	}
	walk(rootCmd)
}
