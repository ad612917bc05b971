// Spending guard - pre-purchase risk scoring, geofencing and spending insights
package main

import (
	"context"
	"log/slog"
	"os"

	"spending-guard/internal/config"
	"spending-guard/internal/database"
	"spending-guard/internal/logging"
	"spending-guard/internal/server"
)

// Build info - set by ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("starting spending-guard",
		"version", Version,
		"commit", Commit,
		"env", cfg.Server.Environment,
		"db_driver", cfg.Database.Driver,
	)

	db, err := database.Initialize(cfg)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()

	srv, err := server.New(cfg, server.WithLogger(logger), server.WithDatabase(db))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server error", "error", err)
		// deferred close is skipped by os.Exit
		_ = db.Close()
		os.Exit(1)
	}
}
