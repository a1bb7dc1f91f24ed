package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/Rohit-jagdale/prepvista/internal/config"
	"github.com/Rohit-jagdale/prepvista/internal/database"
	"github.com/Rohit-jagdale/prepvista/internal/document"
	"github.com/Rohit-jagdale/prepvista/internal/embedding"
	"github.com/Rohit-jagdale/prepvista/internal/llm"
	"github.com/Rohit-jagdale/prepvista/internal/queue"
	"github.com/Rohit-jagdale/prepvista/internal/queue/workers"
	"github.com/Rohit-jagdale/prepvista/internal/rag"
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
	if cfg.Database.URL == "" {
		slog.Error("DATABASE_URL is required for the worker")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gateway := llm.NewGateway(cfg.LLM)
	embedSvc := embedding.NewService(gateway, cfg.Embedding)
	index := vectorstore.NewPgVectorIndex(db, embedSvc.Dimension())
	if err := index.EnsureSchema(ctx); err != nil {
		slog.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	pipeline := rag.NewPipeline(index, embedSvc, gateway, cfg)
	queueClient := queue.NewClient(cfg.Redis)
	docSvc := document.NewService(db, index, queueClient, cfg.Storage.UploadDir)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	docWorker := workers.NewDocumentWorker(docSvc, pipeline)
	registry.Register(queue.TypeDocumentProcess, asynq.HandlerFunc(docWorker.ProcessTask))
	registry.Register(queue.TypeDocumentPurge, asynq.HandlerFunc(docWorker.PurgeTask))

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
