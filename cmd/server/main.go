// MintGuard - Token risk scanner gateway for Solana mints
package main

import (
	"context"
	"os"

	"github.com/mintlabs/mintguard/internal/config"
	"github.com/mintlabs/mintguard/internal/logging"
	"github.com/mintlabs/mintguard/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create logger
	logger := logging.New("info", "text")

	logger.Info("starting mintguard",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"rate_limit_max", cfg.RateLimitMax,
		"primary_affects_degraded", cfg.PrimaryAffectsDegraded,
	)

	// Create and run server
	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
