// Package server exposes the pipeline over HTTP (chi) and serves the gRPC
// health service.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/async"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/pipeline"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
)

type Uploader interface {
	Run(ctx context.Context, req pipeline.UploadRequest) (pipeline.UploadResult, error)
}

type Watermarker interface {
	Run(ctx context.Context, fileName string) (pipeline.WatermarkResult, error)
}

type Exporter interface {
	ExportLogsXLSX(ctx context.Context, day *time.Time) ([]byte, error)
}

// Options wires the handlers to their collaborators.
type Options struct {
	Upload         Uploader
	Translate      async.Queue
	Watermark      Watermarker
	Files          repository.FileTranslationRepository
	Prompts        repository.PromptRepository
	Export         Exporter
	Layout         storage.Layout
	Health         func(ctx context.Context) error
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type handlers struct {
	Options
}

// NewRouter builds the HTTP surface. All pipeline routes live under /api.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	h := &handlers{Options: opts}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog(opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload_file", h.uploadFile)
		r.Get("/get_logs_by_date", h.logsByDate)
		r.Get("/get_all_logs", h.allLogs)
		r.Get("/get_all_prompts", h.allPrompts)
		r.Get("/export_logs", h.exportLogs)
		r.Post("/translate_document", h.translateDocument)
		r.Post("/add_water_mark", h.addWatermark)
	})
	return r
}

// Serve runs srv until ctx is cancelled, then shuts it down within timeout.
func Serve(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = 5 * time.Second
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http.listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		logger.Info("http.shutdown")
		return srv.Shutdown(sctx)
	case err := <-errCh:
		return err
	}
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
