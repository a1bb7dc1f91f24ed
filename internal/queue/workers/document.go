package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/Rohit-jagdale/prepvista/internal/document"
	"github.com/Rohit-jagdale/prepvista/internal/models"
	"github.com/Rohit-jagdale/prepvista/internal/queue"
	"github.com/Rohit-jagdale/prepvista/internal/rag"
)

// DocumentWorker runs the heavy half of the ingestion flow: PDF text
// extraction, chunking and embedding for documents uploaded via the API.
type DocumentWorker struct {
	docs     *document.Service
	pipeline rag.Pipeline
}

func NewDocumentWorker(docs *document.Service, pipeline rag.Pipeline) *DocumentWorker {
	return &DocumentWorker{docs: docs, pipeline: pipeline}
}

func (w *DocumentWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal process payload: %w", err)
	}

	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", payload.DocumentID, err)
	}

	doc, err := w.docs.GetByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if err := w.docs.UpdateStatus(ctx, docID, models.DocStatusProcessing, ""); err != nil {
		return err
	}

	extraction := document.ExtractFile(doc.FilePath)
	if extraction.TotalPages > 0 {
		if err := w.docs.UpdateTotalPages(ctx, docID, extraction.TotalPages); err != nil {
			slog.Warn("failed to record page count", "document_id", docID, "error", err)
		}
	}

	result, err := w.pipeline.Ingest(ctx, rag.IngestRequest{
		DocumentID: docID,
		AgentID:    doc.AgentID,
		FileName:   doc.OriginalName,
		Extraction: extraction,
	})
	if err != nil {
		if serr := w.docs.UpdateStatus(ctx, docID, models.DocStatusFailed, err.Error()); serr != nil {
			slog.Error("failed to mark document failed", "document_id", docID, "error", serr)
		}
		return fmt.Errorf("ingest document %s: %w", docID, err)
	}

	if result.ChunksCreated == 0 {
		reason := extraction.Error
		if reason == "" {
			reason = "no extractable text"
		}
		return w.docs.UpdateStatus(ctx, docID, models.DocStatusFailed, reason)
	}

	slog.Info("document processed",
		"document_id", docID,
		"agent_id", doc.AgentID,
		"pages", extraction.TotalPages,
		"chunks", result.ChunksCreated,
		"embeddings", result.EmbeddingsStored)

	return w.docs.UpdateStatus(ctx, docID, models.DocStatusReady, "")
}

// PurgeTask removes the uploaded file once its database state is gone.
func (w *DocumentWorker) PurgeTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal purge payload: %w", err)
	}

	if payload.FilePath == "" {
		return nil
	}
	if err := os.Remove(payload.FilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", payload.FilePath, err)
	}

	slog.Info("document file purged", "document_id", payload.DocumentID, "path", payload.FilePath)
	return nil
}
