package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Rohit-jagdale/prepvista/internal/embedding"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

// ErrQueryEmbedding marks a retrieval failure caused by the embedding
// provider rather than the vector index.
var ErrQueryEmbedding = errors.New("query embedding failed")

type RetrieveOptions struct {
	AgentID    string
	DocumentID uuid.UUID
	Limit      int
	Threshold  float64
}

// Retriever turns a natural language question into scored chunks.
type Retriever struct {
	index    vectorstore.Index
	embedder *embedding.Service
}

func NewRetriever(index vectorstore.Index, embedder *embedding.Service) *Retriever {
	return &Retriever{index: index, embedder: embedder}
}

// Retrieve embeds the query, oversamples the index at twice the requested
// limit, then filters by the similarity threshold. A nil error with an
// empty slice means the index answered but nothing scored high enough.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]vectorstore.RetrievalResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}

	vector, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryEmbedding, err)
	}

	candidates, err := r.index.Query(ctx, vector, vectorstore.QueryOptions{
		AgentID:    opts.AgentID,
		DocumentID: opts.DocumentID,
		Limit:      opts.Limit * 2,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]vectorstore.RetrievalResult, 0, opts.Limit)
	for _, c := range candidates {
		if c.Score < opts.Threshold {
			continue
		}
		results = append(results, c)
		if len(results) >= opts.Limit {
			break
		}
	}

	slog.Debug("retrieval complete",
		"agent_id", opts.AgentID,
		"candidates", len(candidates),
		"above_threshold", len(results),
		"threshold", opts.Threshold)

	return results, nil
}
