package queue

const (
	TypeDocumentProcess = "document:process"
	TypeDocumentPurge   = "document:purge"
)

type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
	AgentID    string `json:"agent_id"`
}

type DocumentPurgePayload struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
}
