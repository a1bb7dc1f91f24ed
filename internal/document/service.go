package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rohit-jagdale/prepvista/internal/models"
	"github.com/Rohit-jagdale/prepvista/internal/queue"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

// Service owns the document lifecycle: upload to disk, provenance row,
// background processing handoff, and cascade removal through the vector
// index on delete.
type Service struct {
	db          *pgxpool.Pool
	index       vectorstore.Index
	queueClient *queue.Client
	uploadDir   string
}

func NewService(db *pgxpool.Pool, index vectorstore.Index, qc *queue.Client, uploadDir string) *Service {
	return &Service{
		db:          db,
		index:       index,
		queueClient: qc,
		uploadDir:   uploadDir,
	}
}

type UploadRequest struct {
	AgentID      string
	OriginalName string
	Data         io.Reader
}

func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	if req.AgentID == "" {
		return nil, fmt.Errorf("agent id required")
	}

	docID := uuid.New()
	fileName := docID.String() + ".pdf"
	dir := filepath.Join(s.uploadDir, req.AgentID)
	path := filepath.Join(dir, fileName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(f, req.Data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write file: %w", err)
	}

	var doc models.Document
	err = s.db.QueryRow(ctx,
		`INSERT INTO rag_documents (id, agent_id, file_name, original_name, file_path, file_size_bytes, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, agent_id, file_name, original_name, file_path, file_size_bytes, total_pages, status, error, created_at`,
		docID, req.AgentID, fileName, req.OriginalName, path, written, models.DocStatusPending,
	).Scan(&doc.ID, &doc.AgentID, &doc.FileName, &doc.OriginalName, &doc.FilePath,
		&doc.FileSize, &doc.TotalPages, &doc.Status, &doc.Error, &doc.CreatedAt)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("insert document: %w", err)
	}

	if err := s.queueClient.EnqueueDocumentProcess(queue.DocumentProcessPayload{
		DocumentID: docID.String(),
		AgentID:    req.AgentID,
	}); err != nil {
		slog.Error("failed to enqueue document processing", "document_id", docID, "error", err)
	}

	return &doc, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		`SELECT id, agent_id, file_name, original_name, file_path, file_size_bytes, total_pages, status, error, created_at
		 FROM rag_documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.AgentID, &doc.FileName, &doc.OriginalName, &doc.FilePath,
		&doc.FileSize, &doc.TotalPages, &doc.Status, &doc.Error, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *Service) List(ctx context.Context, agentID string, limit, offset int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, agent_id, file_name, original_name, file_path, file_size_bytes, total_pages, status, error, created_at
		 FROM rag_documents WHERE agent_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		agentID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.AgentID, &d.FileName, &d.OriginalName, &d.FilePath,
			&d.FileSize, &d.TotalPages, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes the document's vectors and row, then hands the on-disk
// file to the purge worker so filesystem IO stays off the request path.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document vectors: %w", err)
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM rag_documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}

	if doc.FilePath != "" {
		if err := s.queueClient.EnqueueDocumentPurge(queue.DocumentPurgePayload{
			DocumentID: id.String(),
			FilePath:   doc.FilePath,
		}); err != nil {
			slog.Error("failed to enqueue file purge", "document_id", id, "error", err)
		}
	}

	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status, errMsg string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE rag_documents SET status = $1, error = $2 WHERE id = $3`,
		status, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (s *Service) UpdateTotalPages(ctx context.Context, id uuid.UUID, totalPages int) error {
	_, err := s.db.Exec(ctx,
		`UPDATE rag_documents SET total_pages = $1 WHERE id = $2`,
		totalPages, id,
	)
	if err != nil {
		return fmt.Errorf("update total pages: %w", err)
	}
	return nil
}
