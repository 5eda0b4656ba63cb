package httptransport

import (
	"errors"
	"net/http"

	"vetdocs/internal/breach"
	"vetdocs/internal/catalog"
	"vetdocs/internal/files"
	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/crypto"
	"vetdocs/internal/intake"
	"vetdocs/pkg/platform/httputil"
)

// writeDomainError translates service-level errors into the JSON error
// envelope. Messages stay generic on 5xx so nothing PHI-shaped can leak
// through an error path.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, intake.ErrNotFound),
		errors.Is(err, breach.ErrNotFound),
		errors.Is(err, files.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", "resource not found")

	case errors.Is(err, intake.ErrValidation),
		errors.Is(err, breach.ErrValidation):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())

	case errors.Is(err, files.ErrUnsupportedType),
		errors.Is(err, files.ErrContentMismatch),
		errors.Is(err, files.ErrUnknownCategory):
		httputil.WriteError(w, http.StatusBadRequest, "invalid_file", err.Error())

	case errors.Is(err, files.ErrTooLarge):
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())

	case errors.Is(err, crypto.ErrUnavailable):
		httputil.WriteError(w, http.StatusServiceUnavailable, "feature_unavailable", "")

	case errors.Is(err, audit.ErrAuditWrite):
		httputil.WriteError(w, http.StatusServiceUnavailable, "audit_unavailable", "")

	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
