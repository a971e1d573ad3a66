// Package main provides the entry point for the standalone chattree
// API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/raphaelgruber/chattree-go/internal/config"
	"github.com/raphaelgruber/chattree-go/internal/metrics"
	"github.com/raphaelgruber/chattree-go/internal/server"
	"github.com/raphaelgruber/chattree-go/internal/service"
	"github.com/raphaelgruber/chattree-go/internal/source"
	"github.com/raphaelgruber/chattree-go/internal/store"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger (dual output: stderr text + file JSON)
	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()

	logger.Info("chattree-server starting",
		"version", version,
		"port", cfg.ServerPort,
		"db_path", cfg.DBPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(store.Config{
		Path:       cfg.DBPath,
		DefaultTTL: cfg.CacheTTL,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		logger.Info("closing store")
		_ = st.Close()
	}()

	indexer := service.New(st, source.NewRegistry(), metrics.NewCollector(), logger)
	if err := indexer.Rebuild(ctx); err != nil {
		logger.Error("failed to build graph from cache", "error", err)
		os.Exit(1)
	}
	stats := indexer.GraphStats()
	logger.Info("graph ready",
		"nodes", stats.Nodes,
		"conversations", stats.Conversations,
	)

	srv := server.New(indexer, logger)
	if err := srv.Run(ctx, ":"+cfg.ServerPort); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
