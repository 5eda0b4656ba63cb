package httptransport

import (
	"net/http"
	"time"

	"vetdocs/pkg/platform/httputil"
)

// Capabilities reports which optional components are live. Exposed on the
// health endpoint so operators can see degraded modes at a glance.
type Capabilities struct {
	Encryption bool `json:"encryption"`
	Files      bool `json:"files"`
	Redis      bool `json:"redis"`
	Kafka      bool `json:"kafka"`
}

type HealthHandler struct {
	capabilities Capabilities
}

func NewHealthHandler(capabilities Capabilities) *HealthHandler {
	return &HealthHandler{capabilities: capabilities}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"timestamp":    time.Now().UTC(),
		"capabilities": h.capabilities,
	})
}
