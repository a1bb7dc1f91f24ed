package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// scoreEpsilon absorbs floating-point drift when clamping cosine scores.
const scoreEpsilon = 1e-6

type PgVectorIndex struct {
	db        *pgxpool.Pool
	dimension int
}

func NewPgVectorIndex(db *pgxpool.Pool, dimension int) *PgVectorIndex {
	return &PgVectorIndex{db: db, dimension: dimension}
}

// EnsureSchema creates the pgvector extension, the retrieval tables, and
// their indexes. Safe to call on every startup.
func (s *PgVectorIndex) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS rag_documents (
			id UUID PRIMARY KEY,
			agent_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			original_name TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			file_size_bytes BIGINT NOT NULL DEFAULT 0,
			total_pages INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS rag_documents_agent_idx ON rag_documents (agent_id)`,

		`CREATE TABLE IF NOT EXISTS rag_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES rag_documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			token_count INT NOT NULL DEFAULT 0,
			page_number INT,
			likely_pages INT[] NOT NULL DEFAULT '{}',
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS rag_chunks_document_idx ON rag_chunks (document_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rag_embeddings (
			chunk_id UUID PRIMARY KEY REFERENCES rag_chunks(id) ON DELETE CASCADE,
			embedding vector(%d) NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS rag_embeddings_hnsw_idx ON rag_embeddings
			USING hnsw (embedding vector_cosine_ops) WITH (m = 16, ef_construction = 64)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	slog.Info("vector schema ready", "dimension", s.dimension)
	return nil
}

// InsertChunks writes chunk rows. Re-inserting an existing chunk id is a
// no-op, which keeps retried ingest tasks from duplicating content.
func (s *PgVectorIndex) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		pages := make([]int32, len(c.LikelyPages))
		for i, p := range c.LikelyPages {
			pages[i] = int32(p)
		}

		var pageNumber interface{}
		if c.PageNumber > 0 {
			pageNumber = c.PageNumber
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO rag_chunks (id, document_id, chunk_index, content, token_count, page_number, likely_pages, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO NOTHING`,
			c.ID, c.DocumentID, c.Index, c.Content, c.TokenCount, pageNumber, pages, c.Metadata,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit(ctx)
}

// validateEntry rejects entries that cannot be stored. Dimension mismatch
// is a contract violation, never retried.
func (s *PgVectorIndex) validateEntry(e EmbeddingEntry) error {
	if e.ChunkID == uuid.Nil {
		return fmt.Errorf("missing chunk id")
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("empty vector for chunk %s", e.ChunkID)
	}
	if len(e.Vector) != s.dimension {
		return fmt.Errorf("chunk %s has %d dimensions, index expects %d", e.ChunkID, len(e.Vector), s.dimension)
	}
	return nil
}

// Upsert stores one embedding, replacing any previous vector for the chunk.
func (s *PgVectorIndex) Upsert(ctx context.Context, chunkID uuid.UUID, vector []float32, model string) error {
	if err := s.validateEntry(EmbeddingEntry{ChunkID: chunkID, Vector: vector, Model: model}); err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO rag_embeddings (chunk_id, embedding, model)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding, model = EXCLUDED.model`,
		chunkID, pgvector.NewVector(vector), model,
	)
	if err != nil {
		return fmt.Errorf("upsert embedding for chunk %s: %w", chunkID, err)
	}
	return nil
}

// UpsertBatch stores entries independently: a malformed entry or a failed
// write is skipped with a logged reason, and the count of entries actually
// stored is returned. One bad chunk must not lose the rest of the batch,
// so entries are written one by one on the pool rather than inside a
// shared transaction, where a single failure would abort every sibling.
func (s *PgVectorIndex) UpsertBatch(ctx context.Context, entries []EmbeddingEntry) (int, error) {
	stored := s.storeEach(entries, func(e EmbeddingEntry) error {
		_, err := s.db.Exec(ctx,
			`INSERT INTO rag_embeddings (chunk_id, embedding, model)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (chunk_id) DO UPDATE SET embedding = EXCLUDED.embedding, model = EXCLUDED.model`,
			e.ChunkID, pgvector.NewVector(e.Vector), e.Model,
		)
		return err
	})

	if len(entries) > 0 {
		slog.Info("stored embedding batch", "stored", stored, "total", len(entries))
	}
	return stored, nil
}

// storeEach validates and writes entries one at a time, counting successes.
func (s *PgVectorIndex) storeEach(entries []EmbeddingEntry, write func(EmbeddingEntry) error) int {
	stored := 0
	for _, e := range entries {
		if err := s.validateEntry(e); err != nil {
			slog.Warn("skipping embedding entry", "reason", err)
			continue
		}
		if err := write(e); err != nil {
			slog.Warn("failed to store embedding", "chunk_id", e.ChunkID, "error", err)
			continue
		}
		stored++
	}
	return stored
}

// Query ranks stored embeddings by cosine similarity to the given vector,
// filtered by owner and document scope before ranking. Ties fall back to
// insertion order.
func (s *PgVectorIndex) Query(ctx context.Context, vector []float32, opts QueryOptions) ([]RetrievalResult, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d", len(vector), s.dimension)
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	query := `SELECT c.id, c.document_id, c.content, d.file_name, c.page_number, c.chunk_index,
		       1 - (e.embedding <=> $1) AS score
		FROM rag_embeddings e
		JOIN rag_chunks c ON c.id = e.chunk_id
		JOIN rag_documents d ON d.id = c.document_id`
	args := []interface{}{pgvector.NewVector(vector)}

	where := ""
	if opts.AgentID != "" {
		args = append(args, opts.AgentID)
		where += fmt.Sprintf(" AND d.agent_id = $%d", len(args))
	}
	if opts.DocumentID != uuid.Nil {
		args = append(args, opts.DocumentID)
		where += fmt.Sprintf(" AND c.document_id = $%d", len(args))
	}
	if where != "" {
		query += " WHERE 1=1" + where
	}

	args = append(args, opts.Limit)
	query += fmt.Sprintf(" ORDER BY e.embedding <=> $1, e.created_at, e.chunk_id LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []RetrievalResult
	for rows.Next() {
		var r RetrievalResult
		var pageNumber *int
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.FileName, &pageNumber, &r.ChunkIndex, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if pageNumber != nil {
			r.PageNumber = *pageNumber
		}
		r.Score = clampScore(r.Score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

// clampScore bounds cosine similarity to [-1, 1], tolerating small
// floating-point drift from the distance operator.
func clampScore(score float64) float64 {
	if score > 1 {
		if score > 1+scoreEpsilon {
			slog.Warn("similarity score out of range", "score", score)
		}
		return 1
	}
	if score < -1 {
		if score < -1-scoreEpsilon {
			slog.Warn("similarity score out of range", "score", score)
		}
		return -1
	}
	return score
}

// DeleteByDocument removes every chunk and embedding owned by a document.
// Deleting a document with nothing stored is a no-op.
func (s *PgVectorIndex) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM rag_embeddings WHERE chunk_id IN (SELECT id FROM rag_chunks WHERE document_id = $1)`,
		documentID,
	)
	if err != nil {
		return fmt.Errorf("delete embeddings for document %s: %w", documentID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM rag_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete chunks for document %s: %w", documentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	slog.Info("deleted document vectors", "document_id", documentID, "embeddings", tag.RowsAffected())
	return nil
}

// Stats reports aggregate counts, optionally scoped to one owner.
func (s *PgVectorIndex) Stats(ctx context.Context, agentID string) (*Stats, error) {
	query := `SELECT COUNT(*),
		       COUNT(DISTINCT e.chunk_id),
		       COUNT(DISTINCT c.document_id),
		       COUNT(DISTINCT d.agent_id)
		FROM rag_embeddings e
		JOIN rag_chunks c ON c.id = e.chunk_id
		JOIN rag_documents d ON d.id = c.document_id`
	var args []interface{}
	if agentID != "" {
		query += ` WHERE d.agent_id = $1`
		args = append(args, agentID)
	}

	var st Stats
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&st.TotalEmbeddings, &st.UniqueChunks, &st.UniqueDocuments, &st.UniqueAgents,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding stats: %w", err)
	}
	return &st, nil
}
