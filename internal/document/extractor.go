package document

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the text of a single PDF page, 1-based.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// Extraction is the outcome of pulling text out of an uploaded file.
// A failed extraction carries its reason instead of raising it deep in the
// ingest pipeline; downstream stages see an empty FullText and produce zero
// chunks.
type Extraction struct {
	Success    bool   `json:"success"`
	FullText   string `json:"full_text"`
	Pages      []Page `json:"pages"`
	TotalPages int    `json:"total_pages"`
	Error      string `json:"error,omitempty"`
}

// Extract reads page-indexed text from PDF bytes.
func Extract(data io.ReaderAt, size int64) *Extraction {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return &Extraction{Success: false, Error: fmt.Sprintf("open PDF: %v", err)}
	}

	totalPages := reader.NumPage()
	var pages []Page
	var parts []string

	for i := 1; i <= totalPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			slog.Warn("failed to extract page text", "page", i, "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, Page{Number: i, Text: text})
		parts = append(parts, text)
	}

	fullText := strings.Join(parts, "\n\n")
	if fullText == "" {
		return &Extraction{
			Success:    false,
			Pages:      pages,
			TotalPages: totalPages,
			Error:      "no extractable text in PDF",
		}
	}

	return &Extraction{
		Success:    true,
		FullText:   fullText,
		Pages:      pages,
		TotalPages: totalPages,
	}
}

// ExtractFile extracts from a PDF on disk.
func ExtractFile(path string) *Extraction {
	f, err := os.Open(path)
	if err != nil {
		return &Extraction{Success: false, Error: fmt.Sprintf("open file: %v", err)}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &Extraction{Success: false, Error: fmt.Sprintf("stat file: %v", err)}
	}

	return Extract(f, info.Size())
}
