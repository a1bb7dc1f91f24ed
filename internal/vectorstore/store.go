package vectorstore

import (
	"context"

	"github.com/google/uuid"
)

// ChunkRecord is the stored form of an ingested chunk. Chunks are written
// once and never mutated; they disappear when their document does.
type ChunkRecord struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	Index       int
	Content     string
	TokenCount  int
	PageNumber  int   // primary source page, 0 when unknown
	LikelyPages []int
	Metadata    map[string]interface{}
}

// EmbeddingEntry pairs a chunk with its vector for an upsert. One active
// embedding per chunk: re-upserting replaces, never accumulates.
type EmbeddingEntry struct {
	ChunkID uuid.UUID
	Vector  []float32
	Model   string
}

// QueryOptions scope a nearest-neighbor search. Scopes are hard filters
// applied before ranking, never after truncation.
type QueryOptions struct {
	AgentID    string    // empty = all owners
	DocumentID uuid.UUID // uuid.Nil = all documents
	Limit      int
}

// RetrievalResult is one ranked hit with enough provenance for source
// attribution. Score is cosine similarity in [-1, 1].
type RetrievalResult struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	DocumentID uuid.UUID `json:"document_id"`
	Content    string    `json:"content"`
	FileName   string    `json:"file_name"`
	PageNumber int       `json:"page_number,omitempty"`
	ChunkIndex int       `json:"chunk_index"`
	Score      float64   `json:"similarity_score"`
}

// Stats are aggregate counts over stored embeddings.
type Stats struct {
	TotalEmbeddings int64 `json:"total_embeddings"`
	UniqueChunks    int64 `json:"unique_chunks"`
	UniqueDocuments int64 `json:"unique_documents"`
	UniqueAgents    int64 `json:"unique_agents"`
}

type Index interface {
	EnsureSchema(ctx context.Context) error
	InsertChunks(ctx context.Context, chunks []ChunkRecord) error
	Upsert(ctx context.Context, chunkID uuid.UUID, vector []float32, model string) error
	UpsertBatch(ctx context.Context, entries []EmbeddingEntry) (int, error)
	Query(ctx context.Context, vector []float32, opts QueryOptions) ([]RetrievalResult, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
	Stats(ctx context.Context, agentID string) (*Stats, error)
}
