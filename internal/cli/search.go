package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
	"github.com/csheth/docqa/internal/transcript"
)

var (
	searchDoc  string
	searchJSON bool
	searchSave bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Ask a question against one document",
	Long: `Search sends a question to the backend for a single indexed document and prints
the answer followed by the evidence chunks it was based on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchDoc, "doc", "d", "", "document id (default: first catalog document)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().BoolVar(&searchSave, "save", false, "append the result to the transcript file")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(cmd, commandLogger)
	if err != nil {
		return err
	}
	doc, err := resolveDocument(env.catalog, searchDoc, 0)
	if err != nil {
		return err
	}

	s := session.New(env.client, session.WithLogger(env.log))
	req := rag.SearchRequest{
		Query:      strings.Join(args, " "),
		DocumentID: doc.ID,
		TopK:       env.cfg.TopK,
	}
	if _, err := s.Search(cmd.Context(), req); err != nil {
		return fmt.Errorf("search failed: %s", rag.Message(err))
	}
	view, _ := s.Store().SearchView()
	entry := transcript.FromSearch(view, env.catalog, time.Now())

	if searchSave {
		if err := transcript.Append(env.cfg.TranscriptPath, entry); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
	}
	if searchJSON {
		return outputEntryJSON(cmd, entry)
	}

	cmd.Printf("Document: %s\n\n", env.catalog.DisplayName(view.DocumentID))
	cmd.Println("Answer:")
	printWrapped(cmd.OutOrStdout(), "  ", view.Answer)
	printSources(cmd, "Sources", view.Chunks)
	if searchSave {
		cmd.Printf("\nSaved to %s\n", env.cfg.TranscriptPath)
	}
	return nil
}

func printSources(cmd *cobra.Command, title string, chunks []session.ChunkView) {
	cmd.Printf("\n%s (%d):\n", title, len(chunks))
	if len(chunks) == 0 {
		cmd.Println("  (none)")
		return
	}
	for _, chunk := range chunks {
		cmd.Printf("  %s\n", chunk.Label)
		printWrapped(cmd.OutOrStdout(), "    ", chunk.Content)
	}
}

func outputEntryJSON(cmd *cobra.Command, entry transcript.Entry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
