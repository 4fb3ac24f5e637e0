package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/entity"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/watermark"
)

// ErrSourceMissing is returned when the translated file is not in storage.
var ErrSourceMissing = fmt.Errorf("source file does not exist: %w", common.ErrNotFound)

type WatermarkResult struct {
	OutputName string
	Path       string
}

// WatermarkStage reads a translated file, renders it to PDF, stamps it and
// stores it under the watermark prefix.
type WatermarkStage struct {
	Files     repository.FileTranslationRepository
	Store     storage.BlobStore
	Layout    storage.Layout
	Converter watermark.Converter
	Stamper   watermark.Stamper
	Now       Clock
	Logger    *slog.Logger
}

func NewWatermarkStage(files repository.FileTranslationRepository, store storage.BlobStore, layout storage.Layout,
	conv watermark.Converter, stamp watermark.Stamper, logger *slog.Logger) *WatermarkStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatermarkStage{
		Files:     files,
		Store:     store,
		Layout:    layout,
		Converter: conv,
		Stamper:   stamp,
		Now:       time.Now,
		Logger:    logger,
	}
}

// Run stamps fileName. Unsupported types and a missing source are rejected
// without touching the record; other failures write watermark_status=failed.
func (s *WatermarkStage) Run(ctx context.Context, fileName string) (WatermarkResult, error) {
	log := s.Logger.With("file_name", fileName, "req_id", common.RequestIDFromContext(ctx))
	start := time.Now()

	kind := constants.FileType(fileName)
	if kind != constants.PDF && kind != constants.DOCX {
		log.Warn("watermark.unsupported", "file_type", kind)
		return WatermarkResult{}, common.Errorf(common.ErrUnsupportedFormat, "%s", fileName)
	}

	key := s.Layout.Key(s.Layout.TranslatedPrefix, fileName)
	exists, err := s.Store.Exists(ctx, key)
	if err != nil {
		return WatermarkResult{}, s.fail(ctx, log, fileName, err)
	}
	if !exists {
		log.Error("watermark.source.missing", "key", key)
		return WatermarkResult{}, ErrSourceMissing
	}

	data, err := s.Store.Get(ctx, key)
	if err != nil {
		return WatermarkResult{}, s.fail(ctx, log, fileName, err)
	}

	pdf := data
	if kind == constants.DOCX {
		if pdf, err = s.Converter.ToPDF(ctx, data); err != nil {
			return WatermarkResult{}, s.fail(ctx, log, fileName, err)
		}
	}
	stamped, err := s.Stamper.Stamp(ctx, pdf)
	if err != nil {
		return WatermarkResult{}, s.fail(ctx, log, fileName, err)
	}

	out := constants.BaseName(fileName) + "." + constants.PDF
	outKey := s.Layout.Key(s.Layout.WatermarkPrefix, out)
	meta := map[string]string{storage.MetaDigest: storage.Digest(stamped)}
	if err := s.Store.Put(ctx, outKey, bytes.NewReader(stamped), int64(len(stamped)), "application/pdf", meta); err != nil {
		return WatermarkResult{}, s.fail(ctx, log, fileName, err)
	}

	path := s.Layout.WatermarkURL(out)
	if err := s.Files.UpdateWatermark(ctx, fileName, entity.WatermarkFacet{
		At:     s.Now(),
		Status: constants.StatusDone,
		Path:   strPtr(path),
	}); err != nil {
		log.Error("watermark.record.failed", "error", err)
		return WatermarkResult{}, err
	}

	log.Info("watermark.ok",
		"output", out,
		"converted", kind == constants.DOCX,
		"bytes", len(stamped),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return WatermarkResult{OutputName: out, Path: path}, nil
}

func (s *WatermarkStage) fail(ctx context.Context, log *slog.Logger, fileName string, cause error) error {
	log.Error("watermark.failed", "error", cause)
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Files.UpdateWatermark(wctx, fileName, entity.WatermarkFacet{
		At:     s.Now(),
		Status: constants.StatusFailed,
	}); err != nil {
		log.Warn("watermark.failure_write.failed", "error", err)
	}
	return cause
}
