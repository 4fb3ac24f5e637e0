package extract

import (
	"context"
	"time"
)

// TextExtractor turns a document URL into its raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, url string) (TextExtractionResult, error)
}

// SourceChecker reports whether a document URL is reachable.
type SourceChecker interface {
	Exists(ctx context.Context, url string) (bool, error)
}

type TextExtractionResult struct {
	Text     string
	Pages    int
	Format   string // constants.PDF | constants.DOCX
	Method   string // "pdftotext" | "pdf-go" | "docx-xml"
	Bytes    int
	Duration time.Duration
	Warnings []string
}
