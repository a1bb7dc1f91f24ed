package rag

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Rohit-jagdale/prepvista/internal/document"
	"github.com/Rohit-jagdale/prepvista/pkg/tokenizer"
)

// ChunkOptions controls how document text is segmented.
type ChunkOptions struct {
	MaxTokens        int     // token budget per chunk
	OverlapTokens    int     // tokens carried from the tail of one chunk into the next
	PageOverlapRatio float64 // word-set overlap required to attribute a chunk to a page
}

func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		MaxTokens:        1000,
		OverlapTokens:    200,
		PageOverlapRatio: 0.3,
	}
}

// ChunkMetadata is the provenance attached to every chunk at ingest time.
type ChunkMetadata struct {
	AgentID    string    `json:"agent_id"`
	DocumentID uuid.UUID `json:"document_id"`
	FileName   string    `json:"file_name"`
}

// Chunk is one token-bounded segment of a document, immutable after ingest.
type Chunk struct {
	Content     string
	Index       int
	TokenCount  int
	LikelyPages []int // pages the chunk probably came from, possibly empty
	PrimaryPage int   // first likely page in document order, 0 when unknown
	Metadata    ChunkMetadata
}

type Chunker struct {
	opts ChunkOptions
}

func NewChunker(opts ChunkOptions) *Chunker {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	if opts.PageOverlapRatio <= 0 {
		opts.PageOverlapRatio = 0.3
	}
	return &Chunker{opts: opts}
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	standaloneNum = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	tripleNewline = regexp.MustCompile(`\n\s*\n\s*\n`)
	unsafeChars   = regexp.MustCompile("[^\\w\\s.,!?;:\\-()\\[\\]{}\"'/@#$%&*+=<>|\\\\~`]")
)

// normalize cleans extracted PDF text: page-number artifacts, excessive
// whitespace, and characters outside a safe printable set.
func normalize(text string) string {
	text = standaloneNum.ReplaceAllString(text, "")
	text = tripleNewline.ReplaceAllString(text, "\n\n")
	text = unsafeChars.ReplaceAllString(text, "")
	text = whitespaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// splitSentences splits on sentence-ending punctuation followed by
// whitespace. No mid-sentence splitting happens anywhere downstream.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// Chunk splits document text into overlapping token-bounded chunks and
// attributes each to its likely source pages. Empty or failed extractions
// yield an empty slice; the failure reason stays with the extraction result
// for the caller to surface.
func (c *Chunker) Chunk(text string, pages []document.Page, meta ChunkMetadata) []Chunk {
	cleaned := normalize(text)
	if cleaned == "" {
		return nil
	}

	sentences := splitSentences(cleaned)

	var chunks []Chunk
	var current string
	currentTokens := 0
	idx := 0

	for _, sentence := range sentences {
		sentenceTokens := tokenizer.CountTokens(sentence)

		// A single sentence over budget is still emitted whole once the
		// next boundary closes it. Content is never dropped.
		if currentTokens+sentenceTokens > c.opts.MaxTokens && current != "" {
			chunks = append(chunks, Chunk{
				Content:    strings.TrimSpace(current),
				Index:      idx,
				TokenCount: currentTokens,
				Metadata:   meta,
			})
			idx++

			// Seed the next chunk with the tail of this one so local
			// context survives the boundary.
			overlap := c.overlapTail(current)
			current = overlap + " " + sentence
			currentTokens = tokenizer.CountTokens(current)
			continue
		}

		if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
		currentTokens += sentenceTokens
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, Chunk{
			Content:    strings.TrimSpace(current),
			Index:      idx,
			TokenCount: currentTokens,
			Metadata:   meta,
		})
	}

	for i := range chunks {
		chunks[i].LikelyPages, chunks[i].PrimaryPage = c.attributePages(chunks[i].Content, pages)
	}

	return chunks
}

// overlapTail returns the trailing OverlapTokens/4 words of a chunk. The
// divisor is a deliberately conservative word heuristic, not the
// estimator's tokens-per-word ratio.
func (c *Chunker) overlapTail(text string) string {
	words := strings.Fields(text)
	n := c.opts.OverlapTokens / 4
	if n <= 0 || len(words) <= n {
		return text
	}
	return strings.Join(words[len(words)-n:], " ")
}

// attributePages matches a chunk back to source pages by word-set overlap.
// The ratio is a heuristic knob, not ground truth; a chunk may match zero,
// one, or several pages.
func (c *Chunker) attributePages(content string, pages []document.Page) ([]int, int) {
	if len(pages) == 0 {
		return nil, 0
	}

	chunkWords := wordSet(content)
	if len(chunkWords) == 0 {
		return nil, 0
	}

	needed := float64(len(chunkWords)) * c.opts.PageOverlapRatio

	var likely []int
	for _, page := range pages {
		pageWords := wordSet(page.Text)

		overlap := 0
		for w := range chunkWords {
			if pageWords[w] {
				overlap++
			}
		}
		if float64(overlap) > needed {
			likely = append(likely, page.Number)
		}
	}

	primary := 0
	if len(likely) > 0 {
		primary = likely[0]
	}
	return likely, primary
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
