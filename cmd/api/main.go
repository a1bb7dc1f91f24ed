package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Rohit-jagdale/prepvista/internal/api"
	"github.com/Rohit-jagdale/prepvista/internal/config"
	"github.com/Rohit-jagdale/prepvista/internal/database"
	"github.com/Rohit-jagdale/prepvista/internal/embedding"
	"github.com/Rohit-jagdale/prepvista/internal/llm"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Warn("incomplete configuration, running degraded", "error", err)
	}

	ctx := context.Background()

	// Database connection (optional, RAG routes answer 503 without it)
	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without DB", "error", err)
			db = nil
		} else {
			defer db.Close()

			embedSvc := embedding.NewService(llm.NewGateway(cfg.LLM), cfg.Embedding)
			index := vectorstore.NewPgVectorIndex(db, embedSvc.Dimension())
			if err := index.EnsureSchema(ctx); err != nil {
				slog.Error("schema setup failed", "error", err)
				os.Exit(1)
			}

			probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			if !embedSvc.SelfTest(probeCtx) {
				slog.Warn("embedding provider probe failed, ingestion and queries may fail")
			}
			cancel()
		}
	}

	// Redis connection (optional)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache", "error", err)
	}
	defer rdb.Close()

	router := api.NewRouter(db, rdb, cfg)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
