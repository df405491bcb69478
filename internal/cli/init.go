package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docchat/internal/app"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the vector index",
	Long: `Init creates an empty index seeded with a placeholder entry, so ask
works before any document has been ingested. Running init against an
existing index is a no-op.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg, rootDir)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.Index.Stats()
	fmt.Printf("index ready at %s (%d entries, model %s)\n",
		cfg.IndexDir(rootDir), stats.Entries, stats.Model)
	return nil
}
