package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/pipeline"
)

type uploadResponse struct {
	Message  string `json:"message"`
	FileName string `json:"file_name"`
}

func (h *handlers) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
			return
		}
		writeError(w, common.Errorf(common.ErrInvalidInput, "multipart form: %v", err))
		return
	}

	req := pipeline.UploadRequest{
		FromLanguage:  strings.TrimSpace(r.FormValue("fromLang")),
		ToLanguage:    strings.TrimSpace(r.FormValue("toLang")),
		ExclusionText: r.FormValue("exclusion_text"),
		UploadedBy:    strings.TrimSpace(r.FormValue("uploaded_by")),
	}
	if raw := strings.TrimSpace(r.FormValue("prompt_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, common.Errorf(common.ErrInvalidInput, "prompt_id must be an integer"))
			return
		}
		req.PromptID = &id
	}

	file, hdr, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		req.FileName = hdr.Filename
		req.ContentType = hdr.Header.Get("Content-Type")
		if req.Content, err = io.ReadAll(file); err != nil {
			writeError(w, common.Errorf(common.ErrInvalidInput, "read file: %v", err))
			return
		}
	}

	res, err := h.Upload.Run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:  fmt.Sprintf("File %s uploaded successfully", res.FileName),
		FileName: res.FileName,
	})
}
