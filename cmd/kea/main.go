// Kea - NZ GST customer-group classification for commerce platforms.
// Copyright (c) 2025 opensource.commerce
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/opensource-commerce/kea/internal/api"
	"github.com/opensource-commerce/kea/internal/bus"
	"github.com/opensource-commerce/kea/internal/cache"
	"github.com/opensource-commerce/kea/internal/classify"
	"github.com/opensource-commerce/kea/internal/domain"
	"github.com/opensource-commerce/kea/internal/rates"
	"github.com/opensource-commerce/kea/internal/registry"
	"github.com/opensource-commerce/kea/internal/repository"
	"github.com/opensource-commerce/kea/internal/taxcheck"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load .env if present; real environment wins
	_ = godotenv.Load()

	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("KEA_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting kea",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("KEA_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize NZBN registry lookup, cached when a TTL is configured
	var lookup domain.RegistryLookup = registry.NewClient(registry.ClientConfig{
		Timeout: time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
	})
	if cfg.Registry.CacheTTLSecs > 0 {
		lookup = registry.NewCachedLookup(lookup, cacheImpl, time.Duration(cfg.Registry.CacheTTLSecs)*time.Second)
	}
	slog.Info("registry lookup initialized",
		"timeout_secs", cfg.Registry.TimeoutSecs,
		"cache_ttl_secs", cfg.Registry.CacheTTLSecs,
	)

	// Initialize tax-id check and classification services
	checker := taxcheck.NewService(lookup, nil)
	classifier := classify.NewService(checker, rates.NewStore(repo))
	slog.Info("classification service initialized", "scheme", domain.SchemeID)

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, classifier, checker, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("kea is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("kea shutdown complete")
}

// applyEnvOverrides layers KEA_* environment settings over the tier
// defaults.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("KEA_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("KEA_POSTGRES_HOST"); v != "" {
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("KEA_POSTGRES_USER"); v != "" {
		cfg.Repository.PostgresUser = v
	}
	if v := os.Getenv("KEA_POSTGRES_PASSWORD"); v != "" {
		cfg.Repository.PostgresPassword = v
	}
	if v := os.Getenv("KEA_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("KEA_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("KEA_NATS_URL"); v != "" {
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("KEA_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KEA_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔════════════════════════════════════════════╗")
	fmt.Println("  ║                 🦜 KEA                     ║")
	fmt.Println("  ║    NZ GST Customer Group Classification    ║")
	fmt.Println("  ║      The right group, every order.         ║")
	fmt.Println("  ╚════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /classify          - Classify an order into a customer group")
	fmt.Println("    POST /taxid/check       - Validate an NZBN / GST registration")
	fmt.Println("    GET  /scheme            - Scheme metadata")
	fmt.Println("    GET  /config            - Store scheme configuration")
	fmt.Println("    PUT  /config            - Update store scheme configuration")
	fmt.Println("    GET  /rates/{currency}  - Host exchange rate")
	fmt.Println("    PUT  /rates/{currency}  - Update host exchange rate")
	fmt.Println("    GET  /health            - Health check")
	fmt.Println()
}
