package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/entity"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
)

type UploadRequest struct {
	FileName      string
	Content       []byte
	ContentType   string
	FromLanguage  string
	ToLanguage    string
	ExclusionText string
	UploadedBy    string
	PromptID      *int64
}

type UploadResult struct {
	FileName        string
	LandingZonePath string
}

// UploadStage stores the document in the landing zone and creates its record.
type UploadStage struct {
	Files  repository.FileTranslationRepository
	Store  storage.BlobStore
	Layout storage.Layout
	Now    Clock
	Logger *slog.Logger
}

func NewUploadStage(files repository.FileTranslationRepository, store storage.BlobStore, layout storage.Layout, logger *slog.Logger) *UploadStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadStage{Files: files, Store: store, Layout: layout, Now: time.Now, Logger: logger}
}

// Validate rejects a request before anything is written.
func (s *UploadStage) Validate(req UploadRequest) error {
	v := common.NewValidator()
	if strings.TrimSpace(req.FileName) == "" || len(req.Content) == 0 {
		v.Field("file", "", common.Required)
	} else {
		v.Field("file", req.FileName, common.AllowedFile, common.MaxLength(255))
	}
	v.Field("fromLang", req.FromLanguage, common.Required)
	v.Field("toLang", req.ToLanguage, common.Required)
	if v.HasErrors() {
		return v.Error()
	}
	return nil
}

func (s *UploadStage) Run(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if err := s.Validate(req); err != nil {
		s.Logger.Warn("upload.rejected", "file_name", req.FileName, "error", err)
		return UploadResult{}, err
	}
	now := s.Now()

	name, err := s.Files.UniqueFileName(ctx, req.FileName, now)
	if err != nil {
		return UploadResult{}, err
	}

	key := s.Layout.Key(s.Layout.LandingPrefix, name)
	meta := map[string]string{storage.MetaDigest: storage.Digest(req.Content)}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.Store.Put(ctx, key, bytes.NewReader(req.Content), int64(len(req.Content)), contentType, meta); err != nil {
		s.Logger.Error("upload.store.failed", "file_name", name, "error", err)
		return UploadResult{}, fmt.Errorf("store %s: %w", name, err)
	}

	landing := s.Layout.LandingURL(name)
	err = s.Files.Create(ctx, entity.UploadFacet{
		FileName:        name,
		LandingZonePath: landing,
		FileType:        constants.FileType(name),
		UploadedAt:      now,
		Status:          constants.StatusDone,
		UploadedBy:      req.UploadedBy,
		FromLanguage:    req.FromLanguage,
		ToLanguage:      req.ToLanguage,
		ExclusionText:   req.ExclusionText,
		PromptID:        req.PromptID,
	})
	if err != nil {
		return UploadResult{}, err
	}

	s.Logger.Info("upload.ok",
		"file_name", name,
		"renamed", name != req.FileName,
		"bytes", len(req.Content),
		"from", req.FromLanguage,
		"to", req.ToLanguage,
	)
	return UploadResult{FileName: name, LandingZonePath: landing}, nil
}
