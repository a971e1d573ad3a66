package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/chattree-go/internal/server"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server: tree, validation and branch endpoints plus
a websocket that pushes refresh events after imports.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := servePort
	if port == "" {
		port = cfg.ServerPort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(indexer, logger)
	if err := srv.Run(ctx, ":"+port); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
