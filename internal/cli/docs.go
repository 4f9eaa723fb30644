package cli

import (
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List the documents in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		cat, err := cfg.Catalog()
		if err != nil {
			return err
		}
		for _, doc := range cat.List() {
			cmd.Printf("%-8s %s\n", doc.ID, doc.Name)
			cmd.Printf("%-8s %s\n", "", doc.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
}
