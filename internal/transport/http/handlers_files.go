package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vetdocs/internal/files"
	"vetdocs/pkg/platform/httputil"
)

// FilesHandler serves upload, metadata, download and deletion. The whole
// surface is capability-gated: when object storage is not configured the
// service is nil and every route answers feature_unavailable.
type FilesHandler struct {
	service *files.Service
	log     *slog.Logger
}

func NewFilesHandler(service *files.Service, log *slog.Logger) *FilesHandler {
	return &FilesHandler{service: service, log: log}
}

// Enabled reports whether file handling is configured.
func (h *FilesHandler) Enabled() bool { return h.service != nil }

func (h *FilesHandler) RegisterPublic(r chi.Router) {
	r.Post("/upload", h.handleUpload)
	r.Get("/files/{id}", h.handleGetFile)
	r.Get("/files/{id}/download", h.handleDownload)
}

func (h *FilesHandler) RegisterAdmin(r chi.Router) {
	r.Delete("/files/{id}", h.handleDelete)
}

func (h *FilesHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "feature_unavailable", "")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	input := files.UploadInput{
		Filename: header.Filename,
		Category: r.FormValue("file_category"),
		Body:     file,
	}
	if raw := r.FormValue("contact_id"); raw != "" {
		contactID, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid contact_id")
			return
		}
		input.ContactID = &contactID
	}

	uploaded, err := h.service.Upload(r.Context(), input)
	if err != nil {
		h.log.Error("file upload failed", "filename", header.Filename, "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, uploaded)
}

func (h *FilesHandler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "feature_unavailable", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid file id")
		return
	}

	file, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, file)
}

func (h *FilesHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "feature_unavailable", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid file id")
		return
	}

	file, body, err := h.service.Download(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.OriginalFilename+`"`)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Error("file download interrupted", "file_id", id, "error", err)
	}
}

func (h *FilesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !h.Enabled() {
		httputil.WriteError(w, http.StatusServiceUnavailable, "feature_unavailable", "")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid file id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
