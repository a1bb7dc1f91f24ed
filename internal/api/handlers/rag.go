package handlers

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Rohit-jagdale/prepvista/internal/cache"
	"github.com/Rohit-jagdale/prepvista/internal/rag"
)

type RAGHandler struct {
	pipeline rag.Pipeline
	cache    *cache.Cache
	cacheTTL time.Duration
}

func NewRAGHandler(p rag.Pipeline, c *cache.Cache, ttl time.Duration) *RAGHandler {
	return &RAGHandler{pipeline: p, cache: c, cacheTTL: ttl}
}

// Query runs retrieval plus answer generation. Answers are cached per
// agent/document/question so repeat questions skip the model call.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rag unavailable"})
		return
	}

	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}
	if req.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id required"})
		return
	}

	key := answerCacheKey(req)
	var cached rag.QueryResponse
	if hit, err := h.cache.Get(r.Context(), key, &cached); err == nil && hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	resp, err := h.pipeline.Query(r.Context(), req)
	if err != nil {
		if errors.Is(err, rag.ErrQueryEmbedding) {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "embedding service unavailable"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.cache.Set(r.Context(), key, resp, h.cacheTTL); err != nil {
		slog.Warn("answer cache write failed", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Search returns scored chunks without calling the model.
func (h *RAGHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rag unavailable"})
		return
	}

	var req rag.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question required"})
		return
	}
	if req.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agent_id required"})
		return
	}

	results, err := h.pipeline.Search(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "count": len(results)})
}

func (h *RAGHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "rag unavailable"})
		return
	}

	stats, err := h.pipeline.Stats(r.Context(), r.URL.Query().Get("agent_id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func answerCacheKey(req rag.QueryRequest) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%d",
		req.AgentID, req.DocumentID, req.Question, req.MaxResults))
	return fmt.Sprintf("rag:answer:%x", sum)
}
