// Command quotascope is an MCP tool server speaking newline-delimited
// JSON-RPC over stdio. It reports usage and quota from the
// usage-metering API and the Antigravity quota API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/misfitdev/quotascope/pkg/antigravity"
	"github.com/misfitdev/quotascope/pkg/config"
	"github.com/misfitdev/quotascope/pkg/logging"
	"github.com/misfitdev/quotascope/pkg/metering"
	"github.com/misfitdev/quotascope/pkg/registry"
	"github.com/misfitdev/quotascope/router"
	"github.com/misfitdev/quotascope/stdio"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quotascope: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quotascope: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	meteringClient := metering.NewClient(
		cfg.Metering.BaseURL,
		cfg.Metering.APIKey,
		&http.Client{Timeout: cfg.Metering.Timeout()},
	)

	quotaClient := antigravity.NewClient(
		cfg.Antigravity.BaseURL,
		cfg.Antigravity.TokenURL,
		cfg.Antigravity.ClientID,
		cfg.Antigravity.ClientSecret,
		&http.Client{Timeout: cfg.Antigravity.Timeout()},
	)
	accounts := antigravity.NewStore(cfg.Antigravity.AccountsFile)
	quotaService := antigravity.NewService(accounts, quotaClient, log)

	reg := registry.New()
	registry.PopulateUsageTools(reg, meteringClient)
	registry.PopulateAntigravityTools(reg, quotaService)

	dispatcher := router.NewDispatcher(reg, log)
	server := stdio.NewServer(os.Stdin, os.Stdout, dispatcher, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting quotascope MCP server",
		zap.String("version", config.ServerVersion),
		zap.String("log_level", cfg.Logging.Level),
		zap.Int("tools", len(reg.List())),
		zap.String("accounts_file", cfg.Antigravity.AccountsFile),
	)

	// A signal cancels ctx, which is a clean stop; only read failures
	// outside shutdown are fatal.
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("Server terminated", zap.Error(err))
	}
	log.Info("Server stopped")
}
