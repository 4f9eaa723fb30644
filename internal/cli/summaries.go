package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csheth/docqa/internal/rag"
)

var summariesJSON bool

var summariesCmd = &cobra.Command{
	Use:   "summaries",
	Short: "Show the backend's per-document summaries",
	Args:  cobra.NoArgs,
	RunE:  runSummaries,
}

func init() {
	summariesCmd.Flags().BoolVar(&summariesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(summariesCmd)
}

func runSummaries(cmd *cobra.Command, _ []string) error {
	env, err := newEnvironment(cmd, commandLogger)
	if err != nil {
		return err
	}
	cache := rag.NewSummaryCache(env.client)
	if err := cache.Load(cmd.Context()); err != nil {
		return fmt.Errorf("load summaries: %s", rag.Message(err))
	}

	if summariesJSON {
		out := make(map[string]string, env.catalog.Len())
		for _, id := range env.catalog.IDs() {
			if summary, ok := cache.Get(id); ok {
				out[id] = summary
			}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for i, doc := range env.catalog.List() {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("%s (%s)\n", doc.Name, doc.ID)
		summary, ok := cache.Get(doc.ID)
		if !ok {
			cmd.Println("  No summary available.")
			continue
		}
		printWrapped(cmd.OutOrStdout(), "  ", summary)
	}
	return nil
}
