package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Rohit-jagdale/prepvista/internal/api/handlers"
	"github.com/Rohit-jagdale/prepvista/internal/api/middleware"
	"github.com/Rohit-jagdale/prepvista/internal/auth"
	"github.com/Rohit-jagdale/prepvista/internal/cache"
	"github.com/Rohit-jagdale/prepvista/internal/config"
	"github.com/Rohit-jagdale/prepvista/internal/document"
	"github.com/Rohit-jagdale/prepvista/internal/embedding"
	"github.com/Rohit-jagdale/prepvista/internal/llm"
	"github.com/Rohit-jagdale/prepvista/internal/queue"
	"github.com/Rohit-jagdale/prepvista/internal/rag"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	llmGW llm.Gateway
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		llmGW: llm.NewGateway(cfg.LLM),
	}
}

// Setup wires the middleware chain and every route. When the database is
// unavailable the RAG and document services stay nil and their handlers
// answer 503 instead of panicking.
func (rt *Router) Setup() http.Handler {
	r := rt.mux

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	var (
		docSvc      *document.Service
		ragPipeline rag.Pipeline
	)
	if rt.db != nil {
		embedSvc := embedding.NewService(rt.llmGW, rt.cfg.Embedding)
		index := vectorstore.NewPgVectorIndex(rt.db, embedSvc.Dimension())
		ragPipeline = rag.NewPipeline(index, embedSvc, rt.llmGW, rt.cfg)

		queueClient := queue.NewClient(rt.cfg.Redis)
		docSvc = document.NewService(rt.db, index, queueClient, rt.cfg.Storage.UploadDir)
	}

	answerCache := cache.New(rt.redis)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(rt.cfg.Auth.JWTSecret))

		docH := handlers.NewDocumentHandler(docSvc)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Get)
			r.Delete("/{id}", docH.Delete)
			r.Get("/{id}/status", docH.Status)
		})

		ragH := handlers.NewRAGHandler(ragPipeline, answerCache, rt.cfg.RAG.AnswerCacheTTL)
		r.Route("/rag", func(r chi.Router) {
			r.Post("/query", ragH.Query)
			r.Post("/search", ragH.Search)
			r.Get("/stats", ragH.Stats)
		})
	})

	return r
}
