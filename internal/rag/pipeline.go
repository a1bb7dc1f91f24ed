package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Rohit-jagdale/prepvista/internal/config"
	"github.com/Rohit-jagdale/prepvista/internal/document"
	"github.com/Rohit-jagdale/prepvista/internal/embedding"
	"github.com/Rohit-jagdale/prepvista/internal/llm"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

// Pipeline is the full retrieval-augmented flow: ingest documents into the
// vector index and answer questions grounded on them.
type Pipeline interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
	Query(ctx context.Context, req QueryRequest) (*QueryResponse, error)
	Search(ctx context.Context, req QueryRequest) ([]vectorstore.RetrievalResult, error)
	Stats(ctx context.Context, agentID string) (*vectorstore.Stats, error)
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
}

type IngestRequest struct {
	DocumentID uuid.UUID
	AgentID    string
	FileName   string
	Extraction *document.Extraction
}

type IngestResult struct {
	ChunksCreated    int `json:"chunks_created"`
	EmbeddingsStored int `json:"embeddings_stored"`
}

type QueryRequest struct {
	AgentID    string    `json:"agent_id"`
	DocumentID uuid.UUID `json:"document_id,omitempty"`
	Question   string    `json:"question"`
	MaxResults int       `json:"max_results,omitempty"`
}

type QueryResponse struct {
	Answer           string                        `json:"answer"`
	Sources          []vectorstore.RetrievalResult `json:"sources"`
	ContextUsed      bool                          `json:"context_used"`
	ChunkCount       int                           `json:"context_chunk_count"`
	SimilarityScores []float64                     `json:"similarity_scores"`
}

type pipeline struct {
	chunker   *Chunker
	embedder  *embedding.Service
	index     vectorstore.Index
	retriever *Retriever
	composer  *Composer

	maxResults int
	threshold  float64
}

// NewPipeline wires the chunker, embedder, index, retriever and composer
// from config. The gateway may be nil, in which case answers degrade to
// returning retrieved context.
func NewPipeline(index vectorstore.Index, embedder *embedding.Service, gateway llm.Gateway, cfg *config.Config) Pipeline {
	opts := ChunkOptions{
		MaxTokens:        cfg.RAG.ChunkSize,
		OverlapTokens:    cfg.RAG.ChunkOverlap,
		PageOverlapRatio: cfg.RAG.PageOverlapRatio,
	}
	return &pipeline{
		chunker:    NewChunker(opts),
		embedder:   embedder,
		index:      index,
		retriever:  NewRetriever(index, embedder),
		composer:   NewComposer(gateway, cfg.LLM.DefaultProvider, cfg.LLM.DefaultModel, cfg.RAG.GenerationTimeout),
		maxResults: cfg.RAG.MaxResults,
		threshold:  cfg.RAG.SimilarityThreshold,
	}
}

// Ingest chunks the extracted text, embeds every chunk and stores both the
// chunk rows and the vectors. Chunks whose embedding failed are persisted
// without a vector so nothing silently disappears from provenance.
func (p *pipeline) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Extraction == nil || !req.Extraction.Success || req.Extraction.FullText == "" {
		slog.Warn("ingest skipped, no extractable text",
			"document_id", req.DocumentID, "agent_id", req.AgentID)
		return &IngestResult{}, nil
	}

	chunks := p.chunker.Chunk(req.Extraction.FullText, req.Extraction.Pages, ChunkMetadata{
		AgentID:    req.AgentID,
		DocumentID: req.DocumentID,
		FileName:   req.FileName,
	})
	if len(chunks) == 0 {
		slog.Warn("ingest produced no chunks", "document_id", req.DocumentID)
		return &IngestResult{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors := p.embedder.EmbedBatch(ctx, texts)

	records := make([]vectorstore.ChunkRecord, len(chunks))
	entries := make([]vectorstore.EmbeddingEntry, 0, len(chunks))
	for i, c := range chunks {
		id := uuid.New()
		records[i] = vectorstore.ChunkRecord{
			ID:          id,
			DocumentID:  req.DocumentID,
			Index:       c.Index,
			Content:     c.Content,
			TokenCount:  c.TokenCount,
			PageNumber:  c.PrimaryPage,
			LikelyPages: c.LikelyPages,
			Metadata: map[string]interface{}{
				"agent_id":  req.AgentID,
				"file_name": req.FileName,
			},
		}
		if vectors[i] != nil {
			entries = append(entries, vectorstore.EmbeddingEntry{
				ChunkID: id,
				Vector:  vectors[i],
				Model:   p.embedder.Model(),
			})
		}
	}

	if err := p.index.InsertChunks(ctx, records); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	stored, err := p.index.UpsertBatch(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("store embeddings: %w", err)
	}

	slog.Info("document ingested",
		"document_id", req.DocumentID,
		"agent_id", req.AgentID,
		"chunks", len(chunks),
		"embeddings", stored)

	return &IngestResult{ChunksCreated: len(chunks), EmbeddingsStored: stored}, nil
}

func (p *pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	chunks, err := p.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	answer := p.composer.GenerateAnswer(ctx, req.Question, chunks)

	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = c.Score
	}

	return &QueryResponse{
		Answer:           answer.Answer,
		Sources:          answer.Sources,
		ContextUsed:      answer.ContextUsed,
		ChunkCount:       answer.ChunkCount,
		SimilarityScores: scores,
	}, nil
}

func (p *pipeline) Search(ctx context.Context, req QueryRequest) ([]vectorstore.RetrievalResult, error) {
	limit := req.MaxResults
	if limit <= 0 {
		limit = p.maxResults
	}
	return p.retriever.Retrieve(ctx, req.Question, RetrieveOptions{
		AgentID:    req.AgentID,
		DocumentID: req.DocumentID,
		Limit:      limit,
		Threshold:  p.threshold,
	})
}

func (p *pipeline) Stats(ctx context.Context, agentID string) (*vectorstore.Stats, error) {
	return p.index.Stats(ctx, agentID)
}

func (p *pipeline) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	return p.index.DeleteByDocument(ctx, documentID)
}
