package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

func TestComposeSourceHeaders(t *testing.T) {
	c := NewComposer(nil, "openai", "gpt-4o-mini", time.Second)

	chunks := []vectorstore.RetrievalResult{
		scored("biology.pdf", 12, 0.876),
		scored("chemistry.pdf", 3, 0.701),
	}
	text := c.Compose(chunks)

	assert.Contains(t, text, "[Source 1: biology.pdf, Page 12, Similarity: 0.88]")
	assert.Contains(t, text, "[Source 2: chemistry.pdf, Page 3, Similarity: 0.70]")
	assert.Contains(t, text, "content from biology.pdf")
	assert.True(t, strings.Index(text, "Source 1") < strings.Index(text, "Source 2"))
}

func TestComposeOmitsUnknownPage(t *testing.T) {
	c := NewComposer(nil, "openai", "gpt-4o-mini", time.Second)

	text := c.Compose([]vectorstore.RetrievalResult{scored("scan.pdf", 0, 0.9)})

	assert.Contains(t, text, "[Source 1: scan.pdf, Similarity: 0.90]")
	assert.NotContains(t, text, "Page 0")
}

func TestComposeEmpty(t *testing.T) {
	c := NewComposer(nil, "openai", "gpt-4o-mini", time.Second)
	assert.Empty(t, c.Compose(nil))
}

func TestGenerateAnswerInsufficientContext(t *testing.T) {
	gw := &fakeGateway{chatContent: "should never be called"}
	c := NewComposer(gw, "openai", "gpt-4o-mini", time.Second)

	answer := c.GenerateAnswer(context.Background(), "what is osmosis", nil)

	assert.Equal(t, InsufficientContextAnswer, answer.Answer)
	assert.False(t, answer.ContextUsed)
	assert.Zero(t, answer.ChunkCount)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, gw.chatCalls)
}

func TestGenerateAnswerUsesModel(t *testing.T) {
	gw := &fakeGateway{chatContent: "Osmosis is the movement of water across a membrane."}
	c := NewComposer(gw, "openai", "gpt-4o-mini", time.Second)

	chunks := []vectorstore.RetrievalResult{scored("biology.pdf", 4, 0.9)}
	answer := c.GenerateAnswer(context.Background(), "what is osmosis", chunks)

	assert.Equal(t, "Osmosis is the movement of water across a membrane.", answer.Answer)
	assert.True(t, answer.ContextUsed)
	assert.Equal(t, 1, answer.ChunkCount)
	assert.Len(t, answer.Sources, 1)
	assert.Equal(t, 1, gw.chatCalls)
}

func TestGenerateAnswerFallsBackToContextOnError(t *testing.T) {
	gw := &fakeGateway{chatErr: errors.New("model timeout")}
	c := NewComposer(gw, "openai", "gpt-4o-mini", time.Second)

	chunks := []vectorstore.RetrievalResult{scored("biology.pdf", 4, 0.9)}
	answer := c.GenerateAnswer(context.Background(), "question", chunks)

	require.True(t, answer.ContextUsed)
	assert.Contains(t, answer.Answer, "I encountered an error while generating a response.")
	assert.Contains(t, answer.Answer, "content from biology.pdf")
	assert.Len(t, answer.Sources, 1)
}

func TestGenerateAnswerEmptyModelResponse(t *testing.T) {
	gw := &fakeGateway{chatContent: "   "}
	c := NewComposer(gw, "openai", "gpt-4o-mini", time.Second)

	chunks := []vectorstore.RetrievalResult{scored("biology.pdf", 4, 0.9)}
	answer := c.GenerateAnswer(context.Background(), "question", chunks)

	assert.Contains(t, answer.Answer, "I couldn't generate a proper response.")
	assert.Contains(t, answer.Answer, "content from biology.pdf")
}

func TestGenerateAnswerNilGateway(t *testing.T) {
	c := NewComposer(nil, "openai", "gpt-4o-mini", time.Second)

	chunks := []vectorstore.RetrievalResult{scored("biology.pdf", 4, 0.9)}
	answer := c.GenerateAnswer(context.Background(), "question", chunks)

	assert.Contains(t, answer.Answer, "AI model not available.")
	assert.Contains(t, answer.Answer, "content from biology.pdf")
	assert.True(t, answer.ContextUsed)
}

func TestBuildPromptGroundsOnContext(t *testing.T) {
	c := NewComposer(nil, "openai", "gpt-4o-mini", time.Second)
	prompt := c.buildPrompt("what is osmosis", "ctx-block")

	assert.Contains(t, prompt, "ctx-block")
	assert.Contains(t, prompt, "what is osmosis")
	assert.Contains(t, prompt, "ONLY the provided context")
	assert.Contains(t, prompt, "suggest related topics")
}
