package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vetdocs/internal/intake"
	"vetdocs/pkg/platform/httputil"
)

// IntakeHandler serves contact and consultation submissions. Create
// endpoints are public (the website forms post here); reads are admin
// only and wired behind the auth middleware by the router.
type IntakeHandler struct {
	service *intake.Service
	log     *slog.Logger
}

func NewIntakeHandler(service *intake.Service, log *slog.Logger) *IntakeHandler {
	return &IntakeHandler{service: service, log: log}
}

func (h *IntakeHandler) RegisterPublic(r chi.Router) {
	r.Post("/contact", h.handleCreateContact)
	r.Post("/consultation", h.handleCreateConsultation)
}

func (h *IntakeHandler) RegisterAdmin(r chi.Router) {
	r.Get("/contact/{id}", h.handleGetContact)
	r.Get("/consultation/{id}", h.handleGetConsultation)
}

func (h *IntakeHandler) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var input intake.ContactInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	contact, err := h.service.CreateContact(r.Context(), input)
	if err != nil {
		h.log.Error("contact submission failed", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, contact)
}

func (h *IntakeHandler) handleCreateConsultation(w http.ResponseWriter, r *http.Request) {
	var input intake.ConsultationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	req, err := h.service.CreateConsultation(r.Context(), input)
	if err != nil {
		h.log.Error("consultation submission failed", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

func (h *IntakeHandler) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid contact id")
		return
	}

	contact, err := h.service.GetContact(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contact)
}

func (h *IntakeHandler) handleGetConsultation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid consultation id")
		return
	}

	req, err := h.service.GetConsultation(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}
