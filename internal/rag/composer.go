package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rohit-jagdale/prepvista/internal/llm"
	"github.com/Rohit-jagdale/prepvista/internal/vectorstore"
)

// InsufficientContextAnswer is returned when no retrieved chunk cleared
// the similarity threshold.
const InsufficientContextAnswer = "I don't have enough relevant information in the uploaded documents to answer this question accurately. Please try rephrasing your question or upload more relevant documents."

const modelUnavailableAnswer = "AI model not available. Here's the relevant context I found:\n\n"

// Composer assembles retrieved chunks into a grounded prompt and asks the
// configured model for an answer.
type Composer struct {
	gateway  llm.Gateway
	provider string
	model    string
	timeout  time.Duration
}

func NewComposer(gateway llm.Gateway, provider, model string, timeout time.Duration) *Composer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Composer{gateway: gateway, provider: provider, model: model, timeout: timeout}
}

// Answer is the composed response plus the provenance that produced it.
type Answer struct {
	Answer      string                        `json:"answer"`
	Sources     []vectorstore.RetrievalResult `json:"sources"`
	ContextUsed bool                          `json:"context_used"`
	ChunkCount  int                           `json:"context_chunk_count"`
	Context     string                        `json:"-"`
}

// Compose joins chunks into a single context block. Each chunk is headed
// by its source attribution so the model can cite pages.
func (c *Composer) Compose(chunks []vectorstore.RetrievalResult) string {
	if len(chunks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		page := ""
		if chunk.PageNumber > 0 {
			page = fmt.Sprintf(", Page %d", chunk.PageNumber)
		}
		header := fmt.Sprintf("[Source %d: %s%s, Similarity: %.2f]",
			i+1, chunk.FileName, page, chunk.Score)
		parts = append(parts, header+"\n"+chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}

func (c *Composer) buildPrompt(question, contextText string) string {
	return fmt.Sprintf(`You are an expert exam preparation assistant. Answer the student's question using ONLY the provided context from their uploaded study materials.

Context from uploaded documents:
%s

Student's question: %s

Instructions:
- Base your answer strictly on the provided context
- If the context contains page references, cite them in your answer
- Use clear, exam-focused language
- If the context only partially answers the question, say what is covered and what is not
- When relevant, suggest related topics from the context the student should review
- Do not invent information that is not in the context

Answer:`, contextText, question)
}

// GenerateAnswer produces the final answer. Generation failures degrade to
// returning the raw context so the caller still gets usable material.
func (c *Composer) GenerateAnswer(ctx context.Context, question string, chunks []vectorstore.RetrievalResult) *Answer {
	if len(chunks) == 0 {
		return &Answer{
			Answer:      InsufficientContextAnswer,
			Sources:     []vectorstore.RetrievalResult{},
			ContextUsed: false,
			ChunkCount:  0,
		}
	}

	contextText := c.Compose(chunks)
	answer := &Answer{
		Sources:     chunks,
		ContextUsed: true,
		ChunkCount:  len(chunks),
		Context:     contextText,
	}

	if c.gateway == nil {
		answer.Answer = modelUnavailableAnswer + contextText
		return answer
	}

	genCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.gateway.Chat(genCtx, llm.ChatRequest{
		Provider: c.provider,
		Model:    c.model,
		Messages: []llm.Message{
			{Role: "user", Content: c.buildPrompt(question, contextText)},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		slog.Error("answer generation failed", "error", err)
		answer.Answer = "I encountered an error while generating a response. Here's the context I found:\n\n" + contextText
		return answer
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		answer.Answer = "I couldn't generate a proper response. Here's the relevant context I found:\n\n" + contextText
		return answer
	}

	answer.Answer = content
	return answer
}
