// Package watermark renders translated documents to PDF and stamps them.
package watermark

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/runner"
)

// Converter turns a DOCX document into PDF bytes.
type Converter interface {
	ToPDF(ctx context.Context, docx []byte) ([]byte, error)
}

// Stamper overlays the watermark on every page of a PDF.
type Stamper interface {
	Stamp(ctx context.Context, pdf []byte) ([]byte, error)
}

// Soffice converts with LibreOffice in headless mode.
type Soffice struct {
	Bin     string
	Timeout time.Duration
	Runner  runner.Runner
	Logger  *slog.Logger
}

func NewSoffice(bin string, logger *slog.Logger) *Soffice {
	if bin == "" {
		bin = "soffice"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Soffice{Bin: bin, Timeout: 2 * time.Minute, Runner: runner.Exec{Logger: logger}, Logger: logger}
}

func (s *Soffice) ToPDF(ctx context.Context, docx []byte) ([]byte, error) {
	start := time.Now()
	dir, err := os.MkdirTemp("", "watermark-*")
	if err != nil {
		return nil, fmt.Errorf("temp dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	src := filepath.Join(dir, "source.docx")
	if err := os.WriteFile(src, docx, 0o600); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	// soffice --headless --convert-to pdf --outdir <dir> <src>
	if _, stderr, err := s.Runner.Run(ctx, s.Bin, "--headless", "--convert-to", "pdf", "--outdir", dir, src); err != nil {
		return nil, fmt.Errorf("soffice: %w: %s", err, bytes.TrimSpace(stderr))
	}

	out, err := os.ReadFile(filepath.Join(dir, "source.pdf"))
	if err != nil {
		return nil, fmt.Errorf("read converted pdf: %w", err)
	}
	s.Logger.Info("watermark.convert.ok",
		"in_bytes", len(docx),
		"out_bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// TextStamper writes a diagonal text stamp with pdfcpu.
type TextStamper struct {
	Text        string
	Description string
	logger      *slog.Logger
	conf        *model.Configuration
}

// DefaultDescription is a 100pt gray Helvetica stamp at 45 degrees, 30% opaque.
const DefaultDescription = "fontname:Helvetica, points:100, rotation:45, opacity:0.3, fillcolor:#808080"

func NewTextStamper(text string, logger *slog.Logger) *TextStamper {
	if logger == nil {
		logger = slog.Default()
	}
	// Keep pdfcpu from creating a config dir under $HOME.
	model.ConfigPath = "disable"
	return &TextStamper{
		Text:        text,
		Description: DefaultDescription,
		logger:      logger,
		conf:        model.NewDefaultConfiguration(),
	}
}

func (s *TextStamper) Stamp(_ context.Context, pdf []byte) ([]byte, error) {
	wm, err := api.TextWatermark(s.Text, s.Description, true, false, types.POINTS)
	if err != nil {
		s.logger.Error("watermark.stamp.failed", "error", err)
		return nil, fmt.Errorf("watermark description: %w", err)
	}
	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(pdf), &out, nil, wm, s.conf); err != nil {
		s.logger.Error("watermark.stamp.failed", "error", err)
		return nil, fmt.Errorf("stamp: %w", err)
	}
	s.logger.Info("watermark.stamp.ok", "in_bytes", len(pdf), "out_bytes", out.Len())
	return out.Bytes(), nil
}
