package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Rohit-jagdale/prepvista/internal/config"
	"github.com/Rohit-jagdale/prepvista/internal/llm"
)

// groupSize bounds how many texts are reported per progress log line.
// The providers behind the gateway have no batch primitive, so items are
// embedded one at a time regardless.
const groupSize = 100

const defaultDimension = 768

// modelDimensions maps known embedding models to their fixed output
// dimension. The service is the source of truth for what dimension every
// stored vector must have.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"text-embedding-004":     768,
	"nomic-embed-text":       768,
}

type Service struct {
	gateway   llm.Gateway
	provider  string
	model     string
	dimension int
}

func NewService(gw llm.Gateway, cfg config.EmbeddingConfig) *Service {
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	dim := cfg.Dimension
	if dim == 0 {
		if known, ok := modelDimensions[model]; ok {
			dim = known
		} else {
			dim = defaultDimension
		}
	}

	return &Service{
		gateway:   gw,
		provider:  cfg.Provider,
		model:     model,
		dimension: dim,
	}
}

// Model returns the embedding model identifier stored alongside vectors.
func (s *Service) Model() string { return s.model }

// Dimension returns the vector dimension every embedding must have.
// The vector index validates writes against this value.
func (s *Service) Dimension() int { return s.dimension }

// EmbedOne embeds a single text. Any provider error surfaces as the
// returned error; a vector of the wrong length is treated as a contract
// violation, not retried.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.gateway.Embed(ctx, llm.EmbeddingRequest{
		Provider: s.provider,
		Model:    s.model,
		Input:    text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(resp.Embedding) != s.dimension {
		return nil, fmt.Errorf("embed text: model %s returned %d dimensions, expected %d",
			s.model, len(resp.Embedding), s.dimension)
	}
	return resp.Embedding, nil
}

// EmbedBatch embeds texts one at a time in groups of 100. The result is
// positionally aligned with the input: a failed item leaves a nil marker at
// its index and never aborts its siblings, so callers can reconstruct the
// chunk-to-embedding mapping by index.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	results := make([][]float32, len(texts))
	if len(texts) == 0 {
		return results
	}

	succeeded := 0
	for start := 0; start < len(texts); start += groupSize {
		end := min(start+groupSize, len(texts))

		for i := start; i < end; i++ {
			vec, err := s.EmbedOne(ctx, texts[i])
			if err != nil {
				slog.Warn("embedding failed, marking position absent", "index", i, "error", err)
				continue
			}
			results[i] = vec
			succeeded++
		}

		slog.Debug("embedded group",
			"group", start/groupSize+1,
			"groups", (len(texts)+groupSize-1)/groupSize,
		)
	}

	slog.Info("embedding batch complete", "total", len(texts), "succeeded", succeeded)
	return results
}

// Similarity computes the cosine similarity of two vectors. A zero-norm
// vector has no direction, so similarity with it is 0 rather than an error.
func Similarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SelfTest embeds a canned sentence and checks the returned dimension.
// Callers bound it with a context timeout at startup.
func (s *Service) SelfTest(ctx context.Context) bool {
	const probe = "This is a test text for embedding generation."

	vec, err := s.EmbedOne(ctx, probe)
	if err != nil {
		slog.Error("embedding self-test failed", "error", err)
		return false
	}
	if len(vec) != s.dimension {
		slog.Error("embedding self-test dimension mismatch", "got", len(vec), "want", s.dimension)
		return false
	}
	return true
}
