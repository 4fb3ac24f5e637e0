package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// dateParam reads date from the query string, falling back to a JSON body.
func dateParam(r *http.Request) string {
	if d := strings.TrimSpace(r.URL.Query().Get("date")); d != "" {
		return d
	}
	if r.Body == nil {
		return ""
	}
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Date)
}

func parseDay(raw string) (time.Time, error) {
	v := common.NewValidator().Field("date", raw, common.Required, common.Date)
	if err := v.Error(); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.DateOnly, raw)
}

func (h *handlers) logsByDate(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(dateParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	recs, err := h.Files.ListByDate(r.Context(), day)
	if err != nil {
		h.Logger.Error("logs.by_date.failed", "date", day.Format(time.DateOnly), "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

func (h *handlers) allLogs(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Files.ListAll(r.Context())
	if err != nil {
		h.Logger.Error("logs.all.failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(recs))
}

func (h *handlers) allPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.Prompts.List(r.Context())
	if err != nil {
		h.Logger.Error("prompts.list.failed", "error", err)
		writeError(w, err)
		return
	}
	if prompts == nil {
		prompts = []entity.Prompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

func (h *handlers) exportLogs(w http.ResponseWriter, r *http.Request) {
	var day *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		d, err := parseDay(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		day = &d
	}
	xlsx, err := h.Export.ExportLogsXLSX(r.Context(), day)
	if err != nil {
		h.Logger.Error("export.xlsx.failed", "error", err)
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="translation_logs.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func nonNil(recs []entity.FileTranslation) []entity.FileTranslation {
	if recs == nil {
		return []entity.FileTranslation{}
	}
	return recs
}
