package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

func TestRetrieveFiltersBelowThreshold(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.RetrievalResult{
		scored("notes.pdf", 1, 0.91),
		scored("notes.pdf", 2, 0.72),
		scored("notes.pdf", 5, 0.41),
		scored("other.pdf", 3, 0.12),
	}}
	r := NewRetriever(index, testEmbedder(&fakeGateway{}))

	results, err := r.Retrieve(context.Background(), "what is photosynthesis", RetrieveOptions{
		AgentID:   "agent-1",
		Limit:     5,
		Threshold: 0.5,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.91, results[0].Score)
	assert.Equal(t, 0.72, results[1].Score)
}

func TestRetrieveOversamplesIndex(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(index, testEmbedder(&fakeGateway{}))

	_, err := r.Retrieve(context.Background(), "question", RetrieveOptions{Limit: 5, Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 10, index.lastQuery.Limit)
}

func TestRetrieveCapsAtLimit(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.RetrievalResult{
		scored("a.pdf", 1, 0.95),
		scored("a.pdf", 2, 0.90),
		scored("a.pdf", 3, 0.85),
		scored("a.pdf", 4, 0.80),
	}}
	r := NewRetriever(index, testEmbedder(&fakeGateway{}))

	results, err := r.Retrieve(context.Background(), "q", RetrieveOptions{Limit: 2, Threshold: 0.5})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieveNoMatchesIsNotAnError(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.RetrievalResult{
		scored("a.pdf", 1, 0.2),
	}}
	r := NewRetriever(index, testEmbedder(&fakeGateway{}))

	results, err := r.Retrieve(context.Background(), "q", RetrieveOptions{Limit: 5, Threshold: 0.9})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(index, testEmbedder(&fakeGateway{embedErr: errors.New("provider down")}))

	_, err := r.Retrieve(context.Background(), "q", RetrieveOptions{Limit: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQueryEmbedding)
}

func TestRetrieveIndexFailure(t *testing.T) {
	index := &fakeIndex{queryErr: errors.New("connection refused")}
	r := NewRetriever(index, testEmbedder(&fakeGateway{}))

	_, err := r.Retrieve(context.Background(), "q", RetrieveOptions{Limit: 5})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQueryEmbedding)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r := NewRetriever(&fakeIndex{}, testEmbedder(&fakeGateway{}))
	_, err := r.Retrieve(context.Background(), "", RetrieveOptions{Limit: 5})
	assert.Error(t, err)
}

func TestRetrievePassesScopes(t *testing.T) {
	index := &fakeIndex{}
	r := NewRetriever(index, testEmbedder(&fakeGateway{}))

	docID := uuid.New()
	_, err := r.Retrieve(context.Background(), "q", RetrieveOptions{
		AgentID:    "agent-7",
		DocumentID: docID,
		Limit:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, "agent-7", index.lastQuery.AgentID)
	assert.Equal(t, docID, index.lastQuery.DocumentID)
}
