package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docchat/internal/app"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := app.New(cmd.Context(), cfg, rootDir)
	if err != nil {
		return err
	}
	defer a.Close()

	stats := a.Index.Stats()

	if statsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"entries":   stats.Entries,
			"model":     stats.Model,
			"dimension": stats.Dimension,
		})
	}

	fmt.Printf("Entries:   %d\n", stats.Entries)
	fmt.Printf("Model:     %s\n", stats.Model)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	fmt.Printf("Location:  %s\n", cfg.IndexDir(rootDir))
	return nil
}
