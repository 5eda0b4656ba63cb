package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vetdocs/internal/catalog"
	"vetdocs/pkg/platform/httputil"
)

// CatalogHandler serves the public services and blog endpoints.
type CatalogHandler struct {
	store catalog.Store
	log   *slog.Logger
}

func NewCatalogHandler(store catalog.Store, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, log: log}
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/services", h.handleListServices)
	r.Get("/services/{slug}", h.handleGetService)
	r.Get("/blog", h.handleListPosts)
	r.Get("/blog/{slug}", h.handleGetPost)
}

func (h *CatalogHandler) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		h.log.Error("failed to list services", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, services)
}

func (h *CatalogHandler) handleGetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.store.GetService(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, service)
}

func (h *CatalogHandler) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filter := catalog.PostFilter{
		Category: r.URL.Query().Get("category"),
		Query:    r.URL.Query().Get("q"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	posts, err := h.store.ListPosts(r.Context(), filter)
	if err != nil {
		h.log.Error("failed to list blog posts", "error", err)
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, posts)
}

func (h *CatalogHandler) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.store.GetPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}
