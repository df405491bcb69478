// Package cli implements the docchat command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docchat/config"
	"docchat/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your PDF documents",
	Long: `docchat ingests PDF documents into a local vector index and answers
questions about them with citations back to the source pages.

Example usage:
  docchat init                          # Create the index
  docchat ingest ./docs                 # Ingest every PDF under ./docs
  docchat ask -q "what is the policy?"  # Ask a question`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if verbose {
			logger.SetLevel(logger.LevelDebug)
		} else {
			logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docchat.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project root (default is current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
