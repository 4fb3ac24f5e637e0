package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/async"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/eventgrid"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/pipeline"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
)

const (
	msgNotHandled    = "Event received but not handled."
	msgSourceMissing = "Source file does not exist."
)

// blobEvent is the outcome of reading an Event Grid batch.
type blobEvent struct {
	validation string
	prefix     string
	file       string
	found      bool
}

func readEvents(r *http.Request) (blobEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return blobEvent{}, common.Errorf(common.ErrInvalidInput, "read body: %v", err)
	}
	events, err := eventgrid.Parse(body)
	if err != nil {
		return blobEvent{}, err
	}
	if code, ok := eventgrid.ValidationCode(events); ok {
		return blobEvent{validation: code}, nil
	}
	raw, found, err := eventgrid.BlobCreatedURL(events)
	if err != nil || !found {
		return blobEvent{}, err
	}
	prefix, file, err := storage.SplitBlobURL(raw)
	if err != nil {
		return blobEvent{}, common.Errorf(common.ErrInvalidInput, "blob url: %v", err)
	}
	return blobEvent{prefix: prefix, file: file, found: true}, nil
}

func (h *handlers) translateDocument(w http.ResponseWriter, r *http.Request) {
	log := h.Logger.With("route", "translate_document", "req_id", common.RequestIDFromContext(r.Context()))
	ev, err := readEvents(r)
	if err != nil {
		log.Warn("event.invalid", "error", err)
		writeError(w, err)
		return
	}
	if ev.validation != "" {
		log.Info("event.validation")
		writeJSON(w, http.StatusOK, eventgrid.ValidationResponse{ValidationResponse: ev.validation})
		return
	}
	if !ev.found || ev.prefix != h.Layout.LandingPrefix {
		log.Info("event.ignored", "prefix", ev.prefix, "file_name", ev.file)
		writeText(w, http.StatusOK, msgNotHandled)
		return
	}
	if !constants.IsAllowed(ev.file) {
		writeError(w, common.Errorf(common.ErrUnsupportedFormat, "%s", ev.file))
		return
	}

	err = h.Translate.Enqueue(r.Context(), async.Job{
		FileName:    ev.file,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		log.Error("translate.enqueue.failed", "file_name", ev.file, "error", err)
		if errors.Is(err, async.ErrClosed) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	log.Info("translate.enqueued", "file_name", ev.file)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message":   fmt.Sprintf("Translation of %s accepted", ev.file),
		"file_name": ev.file,
	})
}

func (h *handlers) addWatermark(w http.ResponseWriter, r *http.Request) {
	log := h.Logger.With("route", "add_water_mark", "req_id", common.RequestIDFromContext(r.Context()))
	ev, err := readEvents(r)
	if err != nil {
		log.Warn("event.invalid", "error", err)
		writeText(w, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if ev.validation != "" {
		log.Info("event.validation")
		writeJSON(w, http.StatusOK, eventgrid.ValidationResponse{ValidationResponse: ev.validation})
		return
	}
	if !ev.found || ev.prefix != h.Layout.TranslatedPrefix {
		log.Info("event.ignored", "prefix", ev.prefix, "file_name", ev.file)
		writeText(w, http.StatusOK, msgNotHandled)
		return
	}

	res, err := h.Watermark.Run(r.Context(), ev.file)
	if err != nil {
		writeWatermarkError(w, log, err)
		return
	}
	writeText(w, http.StatusOK, fmt.Sprintf("File %s uploaded successfully", res.OutputName))
}

func writeWatermarkError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, pipeline.ErrSourceMissing):
		writeText(w, http.StatusBadRequest, msgSourceMissing)
	case errors.Is(err, common.ErrUnsupportedFormat), errors.Is(err, common.ErrInvalidInput):
		writeText(w, http.StatusBadRequest, "Invalid input: "+err.Error())
	default:
		log.Error("watermark.request.failed", "error", err)
		writeText(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
	}
}
