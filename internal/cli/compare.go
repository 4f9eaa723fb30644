package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/csheth/docqa/internal/rag"
	"github.com/csheth/docqa/internal/session"
	"github.com/csheth/docqa/internal/transcript"
)

var (
	compareDocA string
	compareDocB string
	compareJSON bool
	compareSave bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [query]",
	Short: "Ask one question across two documents",
	Long: `Compare sends a question jointly against two indexed documents and prints the
comparative answer with each document's evidence listed separately.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareDocA, "doc-a", "a", "", "first document id (default: first catalog document)")
	compareCmd.Flags().StringVarP(&compareDocB, "doc-b", "b", "", "second document id (default: second catalog document)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output as JSON")
	compareCmd.Flags().BoolVar(&compareSave, "save", false, "append the result to the transcript file")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(cmd, commandLogger)
	if err != nil {
		return err
	}
	docA, err := resolveDocument(env.catalog, compareDocA, 0)
	if err != nil {
		return err
	}
	docB, err := resolveDocument(env.catalog, compareDocB, 1)
	if err != nil {
		return err
	}

	s := session.New(env.client, session.WithLogger(env.log))
	req := rag.CompareRequest{
		Query:     strings.Join(args, " "),
		DocumentA: docA.ID,
		DocumentB: docB.ID,
		TopK:      env.cfg.TopK,
	}
	if _, err := s.Compare(cmd.Context(), req); err != nil {
		return fmt.Errorf("compare failed: %s", rag.Message(err))
	}
	view, _ := s.Store().ComparisonView()
	entry := transcript.FromComparison(view, env.catalog, time.Now())

	if compareSave {
		if err := transcript.Append(env.cfg.TranscriptPath, entry); err != nil {
			return fmt.Errorf("save transcript: %w", err)
		}
	}
	if compareJSON {
		return outputEntryJSON(cmd, entry)
	}

	cmd.Printf("Comparing: %s vs %s\n\n",
		env.catalog.DisplayName(view.DocumentA),
		env.catalog.DisplayName(view.DocumentB))
	cmd.Println("Comparison:")
	printWrapped(cmd.OutOrStdout(), "  ", view.Answer)
	printSources(cmd, env.catalog.DisplayName(view.DocumentA), view.ChunksA)
	printSources(cmd, env.catalog.DisplayName(view.DocumentB), view.ChunksB)
	if compareSave {
		cmd.Printf("\nSaved to %s\n", env.cfg.TranscriptPath)
	}
	return nil
}
