package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is the provenance row the RAG store keeps for each upload.
// The product's own document/agent tables live in an external schema;
// this mirror carries only what retrieval needs to attribute results.
type Document struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AgentID      string    `json:"agent_id" db:"agent_id"`
	FileName     string    `json:"file_name" db:"file_name"`
	OriginalName string    `json:"original_name" db:"original_name"`
	FilePath     string    `json:"file_path,omitempty" db:"file_path"`
	FileSize     int64     `json:"file_size_bytes,omitempty" db:"file_size_bytes"`
	TotalPages   int       `json:"total_pages" db:"total_pages"`
	Status       string    `json:"status" db:"status"`
	Error        string    `json:"error,omitempty" db:"error"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

const (
	DocStatusPending    = "pending"
	DocStatusProcessing = "processing"
	DocStatusReady      = "ready"
	DocStatusFailed     = "failed"
)
