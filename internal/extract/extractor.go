package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/runner"
)

type Config struct {
	Pdftotext    string        // binary name or absolute path; empty disables the external path
	FetchTimeout time.Duration // default 30s
	HeadTimeout  time.Duration // default 10s
	MaxBytes     int64         // default 100 MiB
}

// Extractor fetches documents over HTTP and reads their text by suffix.
type Extractor struct {
	cfg    Config
	client *http.Client
	runner runner.Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, client *http.Client, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.HeadTimeout <= 0 {
		cfg.HeadTimeout = 10 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 100 << 20
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Extractor{cfg: cfg, client: client, runner: runner.Exec{Logger: logger}, logger: logger}
}

// WithRunner swaps the command runner used for pdftotext.
func (e *Extractor) WithRunner(r runner.Runner) *Extractor {
	e.runner = r
	return e
}

// ExtractText dispatches purely on the URL path suffix. Unsupported suffixes
// fail before any network call.
func (e *Extractor) ExtractText(ctx context.Context, url string) (TextExtractionResult, error) {
	start := time.Now()
	format := constants.FileType(url)
	if _, ok := constants.AllowedExtensions[format]; !ok {
		e.logger.Error("extract.unsupported", "format", format)
		return TextExtractionResult{}, common.Errorf(common.ErrUnsupportedFormat, "suffix %q", format)
	}

	data, err := e.fetch(ctx, url)
	if err != nil {
		return TextExtractionResult{}, err
	}

	var res TextExtractionResult
	switch format {
	case constants.PDF:
		res, err = e.extractPDF(ctx, data)
	case constants.DOCX:
		res, err = extractDOCX(data)
	}
	res.Format = format
	res.Bytes = len(data)
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("extract.failed", "format", format, "error", err)
		return res, err
	}
	e.logger.Info("extract.ok",
		"format", format,
		"method", res.Method,
		"pages", res.Pages,
		"bytes", res.Bytes,
		"text_len", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// Exists issues a HEAD request. 404 means absent; other non-2xx is an error.
func (e *Extractor) Exists(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.HeadTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, common.Errorf(common.ErrFetch, "build head request: %v", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false, common.Errorf(common.ErrFetch, "head: %v", err)
	}
	_ = resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		e.logger.Warn("extract.source.missing", "status", resp.StatusCode)
		return false, nil
	case resp.StatusCode/100 != 2:
		return false, common.Errorf(common.ErrFetch, "head status %d", resp.StatusCode)
	}
	return true, nil
}

func (e *Extractor) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.Errorf(common.ErrFetch, "build request: %v", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Error("extract.fetch.send_error", "error", err)
		return nil, common.Errorf(common.ErrFetch, "get: %v", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			e.logger.Warn("extract.fetch.body_close_error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode/100 != 2 {
		e.logger.Error("extract.fetch.status", "status", resp.StatusCode)
		return nil, common.Errorf(common.ErrFetch, "status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, e.cfg.MaxBytes+1))
	if err != nil {
		return nil, common.Errorf(common.ErrFetch, "read body: %v", err)
	}
	if int64(len(data)) > e.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: document larger than %d bytes", common.ErrInvalidInput, e.cfg.MaxBytes)
	}
	return data, nil
}
