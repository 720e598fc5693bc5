// Package main runs the credential key store server: the remote collaborator
// the vault client talks to. It persists secrets in PostgreSQL and serves the
// key and catalog endpoints consumed by agent runtimes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agent-vault/catalog"
	"agent-vault/config"
	"agent-vault/internal/api"
	"agent-vault/observability"
	"agent-vault/repository"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Info("no .env file found, using environment variables")
	}

	production := os.Getenv("ENV") == "production"
	observability.InitLogger(production)
	observability.InitMetrics()

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	ctx := context.Background()

	// Initialize database
	if cfg.Database.URL == "" {
		observability.Fatal("DATABASE_URL environment variable is required")
	}
	repo, err := repository.NewRepository(ctx, cfg.Database.URL)
	if err != nil {
		observability.Fatal("failed to connect to database", "error", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		observability.Fatal("failed to prepare database schema", "error", err)
	}
	observability.Info("connected to database")

	// Load the service catalog; the server stays usable without one
	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			observability.Warn("failed to load service catalog, serving an empty one",
				"path", cfg.Catalog.Path, "error", err)
			cat = nil
		} else {
			observability.Info("service catalog loaded",
				"path", cfg.Catalog.Path, "services", len(cat.Services))
		}
	}

	// Create HTTP router
	handler := api.NewHandler(repo, cat)
	router := api.NewRouter(handler, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		observability.Info("starting key store server",
			"port", cfg.HTTP.Port, "url", fmt.Sprintf("http://localhost:%s", cfg.HTTP.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down key store server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	observability.Info("key store server stopped")
}
