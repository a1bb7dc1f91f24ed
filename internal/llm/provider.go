package llm

import "context"

// Provider abstracts an LLM provider (OpenAI, Anthropic, Ollama).
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Name() string
}

// Gateway provides multi-provider routing with fallback and retry.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)
	Provider(name string) (Provider, error)
}

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// ChatRequest is the input for chat completions.
type ChatRequest struct {
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the output from chat completions.
type ChatResponse struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	LatencyMs    int64  `json:"latency_ms"`
}

// EmbeddingRequest is the input for embedding generation.
// Input carries a single text: the embedding capabilities behind the
// gateway have no native batch primitive, so batching lives upstream.
type EmbeddingRequest struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model"`
	Input    string `json:"input"`
}

// EmbeddingResponse is the output from embedding generation.
type EmbeddingResponse struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Embedding []float32 `json:"embedding"`
	Tokens    int       `json:"tokens"`
}
