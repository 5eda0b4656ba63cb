// Package httptransport wires the HTTP surface: public catalog and
// intake routes, the PHI-protected admin compliance surface, and
// operational endpoints. Handlers stay thin; the compliance pipeline
// lives in the domain services.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vetdocs/internal/platform/metrics"
	"vetdocs/internal/ratelimit"
	"vetdocs/pkg/platform/middleware/auth"
	"vetdocs/pkg/platform/middleware/metadata"
	"vetdocs/pkg/platform/middleware/security"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Catalog   *CatalogHandler
	Intake    *IntakeHandler
	HIPAA     *HIPAAHandler
	Files     *FilesHandler
	Health    *HealthHandler
	RateLimit *ratelimit.Middleware
	Auth      *auth.Middleware
}

// NewRouter builds the full route tree. PHI-bearing routes get no-store
// caching headers and rate limiting; the compliance surface additionally
// requires an admin token.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(security.Headers)
	if deps.Metrics != nil {
		r.Use(instrument(deps.Metrics))
	}

	r.Get("/health", deps.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", deps.Health.ServeHTTP)

		// Public marketing content: cacheable, no PHI.
		deps.Catalog.Register(api)

		// Public PHI-accepting routes.
		api.Group(func(phi chi.Router) {
			phi.Use(security.NoStore)
			phi.Use(deps.RateLimit.Limit)
			deps.Intake.RegisterPublic(phi)
			deps.Files.RegisterPublic(phi)
		})

		// Admin compliance surface.
		api.Group(func(admin chi.Router) {
			admin.Use(security.NoStore)
			admin.Use(deps.RateLimit.Limit)
			admin.Use(deps.Auth.RequireAdmin)
			deps.Intake.RegisterAdmin(admin)
			deps.Files.RegisterAdmin(admin)
			deps.HIPAA.Register(admin)
		})
	})

	return r
}

// instrument records request counts and latency per route pattern.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}
