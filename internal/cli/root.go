// Package cli provides the command-line interface for chattree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/chattree-go/internal/config"
	"github.com/raphaelgruber/chattree-go/internal/metrics"
	"github.com/raphaelgruber/chattree-go/internal/service"
	"github.com/raphaelgruber/chattree-go/internal/source"
	"github.com/raphaelgruber/chattree-go/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Shared state initialized in PersistentPreRunE.
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	st         *store.Store
	indexer    *service.Indexer
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chattree",
	Short: "Index AI chat conversations into a navigable tree",
	Long: `Chattree indexes multi-turn AI chat conversations (ChatGPT, Claude,
Gemini exports) into a deduplicated conversation graph, reconciling
explicit branch-in-new-chat actions, in-place message edits and the
linear message sequence into one navigable tree.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cfg.LogFile, level)

		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		var err error
		st, err = store.Open(store.Config{
			Path:       cfg.DBPath,
			DefaultTTL: cfg.CacheTTL,
			Logger:     logger,
		})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		indexer = service.New(st, source.NewRegistry(), metrics.NewCollector(), logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			if err := st.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(branchesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(serveCmd)
}
