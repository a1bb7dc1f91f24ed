package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.MaxResults)
	assert.Equal(t, 0.5, cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 0.3, cfg.RAG.PageOverlapRatio)
	assert.Equal(t, 30*time.Second, cfg.RAG.GenerationTimeout)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RAG_CHUNK_SIZE", "500")
	t.Setenv("RAG_SIMILARITY_THRESHOLD", "0.7")
	t.Setenv("RAG_GENERATION_TIMEOUT", "45s")
	t.Setenv("EMBEDDING_MODEL", "nomic-embed-text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 0.7, cfg.RAG.SimilarityThreshold)
	assert.Equal(t, 45*time.Second, cfg.RAG.GenerationTimeout)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")

	cfg.Database.URL = "postgres://localhost/prepvista"
	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate())
}
