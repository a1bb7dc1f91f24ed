package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohit-jagdale/prepvista/internal/config"
)

type stubProvider struct {
	name      string
	failTimes int
	calls     int
}

func (s *stubProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.calls++
	if s.calls <= s.failTimes {
		return nil, errors.New("transient failure")
	}
	return &ChatResponse{Provider: s.name, Content: "answer from " + s.name}, nil
}

func (s *stubProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	s.calls++
	if s.calls <= s.failTimes {
		return nil, errors.New("transient failure")
	}
	return &EmbeddingResponse{Provider: s.name, Embedding: []float32{1, 2, 3}}, nil
}

func (s *stubProvider) Name() string { return s.name }

func testGateway(maxRetries int, providers ...*stubProvider) *gateway {
	g := &gateway{
		providers:    make(map[string]Provider),
		maxRetries:   maxRetries,
		retryBackoff: time.Millisecond,
	}
	for _, p := range providers {
		g.providers[p.name] = p
	}
	if len(providers) > 0 {
		g.defaultProvider = providers[0].name
	}
	return g
}

func TestGatewayBuildsConfiguredProviders(t *testing.T) {
	gw := NewGateway(config.LLMConfig{
		OpenAIKey: "sk-test",
		OllamaURL: "http://localhost:11434",
	})

	_, err := gw.Provider("openai")
	assert.NoError(t, err)
	_, err = gw.Provider("ollama")
	assert.NoError(t, err)
	_, err = gw.Provider("anthropic")
	assert.Error(t, err)
}

func TestChatRetriesTransientFailures(t *testing.T) {
	p := &stubProvider{name: "openai", failTimes: 2}
	g := testGateway(2, p)

	resp, err := g.Chat(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "answer from openai", resp.Content)
	assert.Equal(t, 3, p.calls)
}

func TestChatExhaustsRetries(t *testing.T) {
	p := &stubProvider{name: "openai", failTimes: 10}
	g := testGateway(2, p)

	_, err := g.Chat(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
	assert.Equal(t, 3, p.calls)
}

func TestChatFallsBackToSecondProvider(t *testing.T) {
	primary := &stubProvider{name: "openai", failTimes: 10}
	fallback := &stubProvider{name: "ollama"}
	g := testGateway(0, primary, fallback)
	g.fallbackProvider = "ollama"

	resp, err := g.Chat(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "answer from ollama", resp.Content)
}

func TestChatUnknownProvider(t *testing.T) {
	g := testGateway(0, &stubProvider{name: "openai"})

	_, err := g.Chat(context.Background(), ChatRequest{Provider: "nonexistent"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestEmbedRetries(t *testing.T) {
	p := &stubProvider{name: "openai", failTimes: 1}
	g := testGateway(2, p)

	resp, err := g.Embed(context.Background(), EmbeddingRequest{Input: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, resp.Embedding)
	assert.Equal(t, 2, p.calls)
}

func TestEmbedRespectsContextCancellation(t *testing.T) {
	p := &stubProvider{name: "openai", failTimes: 10}
	g := testGateway(5, p)
	g.retryBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Embed(ctx, EmbeddingRequest{Input: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
