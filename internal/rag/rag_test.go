package rag

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Rohit-jagdale/prepvista/internal/config"
	"github.com/Rohit-jagdale/prepvista/internal/embedding"
	"github.com/Rohit-jagdale/prepvista/internal/llm"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

const testDimension = 4

// fakeGateway serves canned chat and embedding responses for pipeline
// tests. Error fields switch it into failure mode.
type fakeGateway struct {
	chatContent string
	chatErr     error
	embedErr    error
	chatCalls   int
	embedCalls  int
}

func (f *fakeGateway) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.chatCalls++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &llm.ChatResponse{Content: f.chatContent, Model: req.Model}, nil
}

func (f *fakeGateway) Embed(ctx context.Context, req llm.EmbeddingRequest) (*llm.EmbeddingResponse, error) {
	f.embedCalls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	vec := make([]float32, testDimension)
	vec[0] = 1
	return &llm.EmbeddingResponse{Model: req.Model, Embedding: vec}, nil
}

func (f *fakeGateway) Provider(name string) (llm.Provider, error) {
	return nil, errors.New("no providers in fake")
}

// fakeIndex is an in-memory vectorstore.Index.
type fakeIndex struct {
	chunks   []vectorstore.ChunkRecord
	entries  []vectorstore.EmbeddingEntry
	results  []vectorstore.RetrievalResult
	queryErr error

	lastQuery vectorstore.QueryOptions
	deleted   []uuid.UUID
}

func (f *fakeIndex) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeIndex) InsertChunks(ctx context.Context, chunks []vectorstore.ChunkRecord) error {
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Upsert(ctx context.Context, chunkID uuid.UUID, vector []float32, model string) error {
	f.entries = append(f.entries, vectorstore.EmbeddingEntry{ChunkID: chunkID, Vector: vector, Model: model})
	return nil
}

func (f *fakeIndex) UpsertBatch(ctx context.Context, entries []vectorstore.EmbeddingEntry) (int, error) {
	f.entries = append(f.entries, entries...)
	return len(entries), nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, opts vectorstore.QueryOptions) ([]vectorstore.RetrievalResult, error) {
	f.lastQuery = opts
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if opts.Limit < len(f.results) {
		return f.results[:opts.Limit], nil
	}
	return f.results, nil
}

func (f *fakeIndex) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	f.deleted = append(f.deleted, documentID)
	return nil
}

func (f *fakeIndex) Stats(ctx context.Context, agentID string) (*vectorstore.Stats, error) {
	return &vectorstore.Stats{
		TotalEmbeddings: int64(len(f.entries)),
		UniqueChunks:    int64(len(f.chunks)),
	}, nil
}

func testEmbedder(gw llm.Gateway) *embedding.Service {
	return embedding.NewService(gw, config.EmbeddingConfig{
		Provider:  "openai",
		Model:     "test-model",
		Dimension: testDimension,
	})
}

func scored(name string, page int, score float64) vectorstore.RetrievalResult {
	return vectorstore.RetrievalResult{
		ChunkID:    uuid.New(),
		DocumentID: uuid.New(),
		Content:    "content from " + name,
		FileName:   name,
		PageNumber: page,
		Score:      score,
	}
}
