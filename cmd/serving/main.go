package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/api"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/clickhouse"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/config"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/extraction"
	"github.com/kacper-wojtaszczyk/jackfruit/extraction-go/internal/interpolate"
)

// storedMeshes bounds the mesh cache shared by stored-field requests.
const storedMeshes = 32

func main() {
	// Initialize structured logger (JSON to stdout)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load env vars", "error", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Stored fields are optional: without ClickHouse only inline fields are served.
	var store api.GridStore
	chClient, err := clickhouse.NewClient(clickhouse.Config{
		Host:     cfg.ClickHouseHost,
		Port:     cfg.ClickHousePort,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
		Database: cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		slog.Warn("clickhouse unavailable, stored fields disabled", "error", err)
	} else {
		defer chClient.Close()
		store = chClient
	}

	// Setup HTTP routes
	mux := http.NewServeMux()
	pipeline := extraction.NewPipeline(interpolate.NewLimitedCache(storedMeshes), nil)
	api.NewHandler(pipeline, store).RegisterRoutes(mux)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
