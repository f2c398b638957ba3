package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"userdesk/lib"
	"userdesk/shared/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := userdesk.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", logger.Err(err))
	}
	logger.Configure(config.LogOptions())
	defer func() { _ = logger.Log.Sync() }()

	e, err := userdesk.NewEngine(ctx, config)
	if err != nil {
		logger.Fatal("Failed to start engine", logger.Err(err))
	}

	if err := e.Start(ctx); err != nil {
		logger.Error("HTTP server stopped", logger.Err(err))
	}
	if err := e.Close(); err != nil {
		logger.Error("Failed to release resources", logger.Err(err))
	}
}
