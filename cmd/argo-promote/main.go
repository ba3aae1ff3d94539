package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nathantilsley/argo-promote/internal/platform/config"
	"github.com/nathantilsley/argo-promote/internal/platform/logger"
	"github.com/nathantilsley/argo-promote/internal/platform/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel)

	// Initialize telemetry (noop when disabled)
	ctx := context.Background()
	tel, err := telemetry.New(ctx, cfg.OTelEnabled)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(ctx); err != nil {
			log.Error("telemetry shutdown failed", "error", err)
		}
	}()

	// Build dependency container
	container, err := NewContainer(cfg, log, tel)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}

	// Create and run server
	server := NewServer(container)
	return server.Run()
}
