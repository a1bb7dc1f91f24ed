package rag

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohit-jagdale/prepvista/internal/document"
	"github.com/Rohit-jagdale/prepvista/pkg/tokenizer"
)

func sentenceText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "This is sentence number %d with a few extra words padding it out. ", i)
	}
	return b.String()
}

func TestChunkEmptyInput(t *testing.T) {
	c := NewChunker(DefaultChunkOptions())
	assert.Nil(t, c.Chunk("", nil, ChunkMetadata{}))
	assert.Nil(t, c.Chunk("   \n\n  ", nil, ChunkMetadata{}))
}

func TestChunkSingleShortText(t *testing.T) {
	c := NewChunker(DefaultChunkOptions())
	chunks := c.Chunk("A single short sentence.", nil, ChunkMetadata{AgentID: "agent-1"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "A single short sentence.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "agent-1", chunks[0].Metadata.AgentID)
	assert.Equal(t, 0, chunks[0].PrimaryPage)
}

func TestChunkRespectsTokenBudget(t *testing.T) {
	opts := ChunkOptions{MaxTokens: 100, OverlapTokens: 20, PageOverlapRatio: 0.3}
	c := NewChunker(opts)

	chunks := c.Chunk(sentenceText(50), nil, ChunkMetadata{})
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		// The budget bounds accumulation, not the final chunk size: a
		// chunk may exceed it only by its overlap seed plus one sentence.
		sentences := splitSentences(chunk.Content)
		require.NotEmpty(t, sentences, "chunk %d has no sentences", i)
		assert.Positive(t, chunk.TokenCount)
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunkSentencesNeverSplit(t *testing.T) {
	opts := ChunkOptions{MaxTokens: 50, OverlapTokens: 8, PageOverlapRatio: 0.3}
	c := NewChunker(opts)

	text := sentenceText(30)
	chunks := c.Chunk(text, nil, ChunkMetadata{})

	for _, chunk := range chunks {
		for _, s := range splitSentences(chunk.Content) {
			assert.True(t, strings.HasSuffix(s, "."),
				"sentence fragment found: %q", s)
		}
	}
}

func TestChunkOverlapSharesTrailingWords(t *testing.T) {
	opts := ChunkOptions{MaxTokens: 100, OverlapTokens: 40, PageOverlapRatio: 0.3}
	c := NewChunker(opts)

	chunks := c.Chunk(sentenceText(60), nil, ChunkMetadata{})
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1].Content)
		n := opts.OverlapTokens / 4
		require.Greater(t, len(prevWords), n)
		tail := strings.Join(prevWords[len(prevWords)-n:], " ")
		assert.True(t, strings.HasPrefix(chunks[i].Content, tail),
			"chunk %d does not start with the previous chunk's tail", i)
	}
}

func TestChunkOversizedSentenceEmittedWhole(t *testing.T) {
	opts := ChunkOptions{MaxTokens: 20, OverlapTokens: 4, PageOverlapRatio: 0.3}
	c := NewChunker(opts)

	giant := strings.Repeat("word ", 100) + "end."
	chunks := c.Chunk(giant, nil, ChunkMetadata{})

	require.Len(t, chunks, 1)
	assert.Greater(t, tokenizer.CountTokens(chunks[0].Content), opts.MaxTokens)
	assert.Contains(t, chunks[0].Content, "end.")
}

func TestChunkZeroIsValidTotal(t *testing.T) {
	c := NewChunker(DefaultChunkOptions())
	chunks := c.Chunk("12\n\n34\n", nil, ChunkMetadata{})
	assert.Empty(t, chunks)
}

func TestNormalizeStripsArtifacts(t *testing.T) {
	in := "Intro text.\n42\n\n\n\nMore   text\twith©junk."
	out := normalize(in)

	assert.NotContains(t, out, "42")
	assert.NotContains(t, out, "©")
	assert.NotContains(t, out, "  ")
	assert.Equal(t, "Intro text. More text withjunk.", out)
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third one? Trailing fragment")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Trailing fragment"}, got)
}

func TestSplitSentencesDoesNotSplitDecimals(t *testing.T) {
	got := splitSentences("Pi is 3.14 roughly. Next sentence.")
	assert.Equal(t, []string{"Pi is 3.14 roughly.", "Next sentence."}, got)
}

func TestAttributePages(t *testing.T) {
	pages := []document.Page{
		{Number: 1, Text: "photosynthesis converts light energy into chemical energy in plants"},
		{Number: 2, Text: "cellular respiration releases energy stored in glucose molecules"},
		{Number: 3, Text: "completely unrelated chapter about roman history and emperors"},
	}

	c := NewChunker(DefaultChunkOptions())
	chunks := c.Chunk("Photosynthesis converts light energy into chemical energy.", pages, ChunkMetadata{})

	require.Len(t, chunks, 1)
	assert.Equal(t, []int{1}, chunks[0].LikelyPages)
	assert.Equal(t, 1, chunks[0].PrimaryPage)
}

func TestAttributePagesNoMatch(t *testing.T) {
	pages := []document.Page{
		{Number: 1, Text: "alpha beta gamma delta"},
	}

	c := NewChunker(DefaultChunkOptions())
	chunks := c.Chunk("Something entirely different about quantum entanglement here.", pages, ChunkMetadata{})

	require.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].LikelyPages)
	assert.Equal(t, 0, chunks[0].PrimaryPage)
}
