// Package main provides the PC configurator server entry point.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"

	"github.com/pcshop/configurator/pkg/audit"
	"github.com/pcshop/configurator/pkg/authz"
	"github.com/pcshop/configurator/pkg/cache"
	"github.com/pcshop/configurator/pkg/compat"
	"github.com/pcshop/configurator/pkg/config"
	"github.com/pcshop/configurator/pkg/db"
	"github.com/pcshop/configurator/pkg/ha"
	"github.com/pcshop/configurator/pkg/jobs"
	"github.com/pcshop/configurator/pkg/seed"
	"github.com/pcshop/configurator/pkg/server"
	"github.com/pcshop/configurator/pkg/stock"
)

func main() {
	var (
		configPath   string
		listenAddr   string
		seedPath     string
		databaseType string
		databaseDSN  string
	)

	flag.StringVar(&configPath, "config", "", "Path to the server config file (default: pcshop.yaml if present)")
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides config)")
	flag.StringVar(&seedPath, "seed", "", "Seed file applied at startup (overrides config)")
	flag.StringVar(&databaseType, "db-type", "", "Database type: postgres, mysql or sqlite (overrides config)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string (overrides config)")
	flag.Parse()

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("Failed to load config: %v", err)
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if seedPath != "" {
		cfg.SeedPath = seedPath
	}
	if databaseType != "" {
		cfg.Database.Type = databaseType
	}
	if databaseDSN != "" {
		cfg.Database.DSN = databaseDSN
	}
	if err := cfg.Validate(); err != nil {
		glog.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting pcshop server",
		"listen", cfg.Listen,
		"database", cfg.Database.Type,
		"seed", cfg.SeedPath,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	gormDB, err := db.Open(cfg.Database.DB())
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	authzCfg := authz.ConfigFromEnv()
	identity, err := authz.NewIdentityMiddleware(authzCfg, logger.With("component", "authz"))
	if err != nil {
		glog.Fatalf("Failed to set up identity: %v", err)
	}
	logger.Info("authorization",
		"mode", authzCfg.Mode,
		"identity", authzCfg.Identity,
		"adminGroups", authzCfg.AdminGroups,
	)

	srv := server.New(gormDB, logger,
		server.WithAuthorizer(authz.NewAuthorizer(authzCfg)),
		server.WithIdentityMiddleware(identity),
		server.WithCacheConfig(cache.CacheConfigFromEnv()),
		server.WithAuditConfig(audit.AuditConfigFromEnv()),
		server.WithJobConfig(jobs.JobConfigFromEnv()),
		server.WithStockConfig(stock.ConfigFromEnv()),
		server.WithPowerBudget(compat.PowerBudgetConfigFromEnv()),
		server.WithHAConfig(ha.HAConfigFromEnv()),
		server.WithCORSOrigins(cfg.CORS.AllowedOrigins),
	)
	if err := srv.Init(ctx); err != nil {
		glog.Fatalf("Failed to initialize server: %v", err)
	}

	if cfg.SeedPath != "" {
		f, err := seed.Load(cfg.SeedPath)
		if err != nil {
			glog.Fatalf("Failed to load seed file: %v", err)
		}
		res, err := srv.Seed(ctx, f)
		if err != nil {
			glog.Fatalf("Failed to apply seed file: %v", err)
		}
		logger.Info("applied seed file",
			"path", cfg.SeedPath,
			"attributes", res.AttributesCreated,
			"componentTypes", res.ComponentTypesCreated,
			"rules", res.RulesCreated,
			"products", res.ProductsCreated,
			"skipped", res.Skipped,
		)
	}

	router := srv.MountRoutes()

	if err := srv.Start(ctx); err != nil {
		glog.Fatalf("Failed to start background workers: %v", err)
	}

	logger.Info("pcshop server ready", "listen", cfg.Listen)

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("background worker shutdown error", "error", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("pcshop server stopped")
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
