package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF tries pdftotext first when configured (better layout handling),
// then falls back to the pure-Go reader.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (TextExtractionResult, error) {
	var warnings []string
	if e.cfg.Pdftotext != "" {
		text, pages, err := e.pdfToText(ctx, data)
		if err == nil && strings.TrimSpace(text) != "" {
			return TextExtractionResult{Text: text, Pages: pages, Method: "pdftotext"}, nil
		}
		if err != nil {
			warnings = append(warnings, err.Error())
		}
		e.logger.Warn("extract.pdftotext.fallback", "error", err)
	}

	text, pages, err := readPDF(data)
	return TextExtractionResult{Text: text, Pages: pages, Method: "pdf-go", Warnings: warnings}, err
}

func (e *Extractor) pdfToText(ctx context.Context, data []byte) (string, int, error) {
	f, err := os.CreateTemp("", "translate-*.pdf")
	if err != nil {
		return "", 0, err
	}
	defer func() {
		_ = os.Remove(f.Name())
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", 0, err
	}
	if err := f.Close(); err != nil {
		return "", 0, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", f.Name(), "-")
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	text := string(out)
	// A form-feed \f separates pages
	pages := 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return strings.ReplaceAll(text, "\f", "\n"), pages, nil
}

// readPDF concatenates the plain text of every page. Pages that fail to
// decode are skipped rather than failing the document.
func readPDF(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	total := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
	}
	return b.String(), total, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
