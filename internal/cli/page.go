package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/csheth/docqa/internal/docstore"
)

var pageCmd = &cobra.Command{
	Use:   "page [document-id] [page]",
	Short: "Print the text of one page of a document",
	Long: `Page downloads the document PDF into the local cache if needed and prints the
extracted text of the requested page. Pages are numbered from 1.`,
	Args: cobra.ExactArgs(2),
	RunE: runPage,
}

func init() {
	rootCmd.AddCommand(pageCmd)
}

func runPage(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment(cmd, commandLogger)
	if err != nil {
		return err
	}
	doc, err := env.catalog.Resolve(args[0])
	if err != nil {
		return err
	}
	page, err := strconv.Atoi(args[1])
	if err != nil || page < 1 {
		return fmt.Errorf("invalid page %q", args[1])
	}

	store, err := docstore.New(env.cfg.CacheDir, nil, env.log)
	if err != nil {
		return err
	}
	text, err := store.PageText(cmd.Context(), doc, page)
	if err != nil {
		return err
	}
	cmd.Printf("%s, page %d\n\n", doc.Name, page)
	printWrapped(cmd.OutOrStdout(), "", text)
	return nil
}
