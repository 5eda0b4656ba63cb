package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/platform/metrics"
	"vetdocs/pkg/platform/httputil"
	"vetdocs/pkg/platform/middleware/metadata"
)

// Middleware gates PHI-adjacent routes behind the limiter. Denials are
// normal control flow: the client gets a 429 with a retry hint and an
// access-denied audit record is emitted best-effort.
type Middleware struct {
	limiter  *Limiter
	auditor  *audit.Logger
	metrics  *metrics.Metrics
	log      *slog.Logger
	disabled bool
}

type MiddlewareOption func(*Middleware)

// WithDisabled turns rate limiting off entirely (tests, demo mode).
func WithDisabled(disabled bool) MiddlewareOption {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithMetrics(met *metrics.Metrics) MiddlewareOption {
	return func(m *Middleware) { m.metrics = met }
}

func NewMiddleware(limiter *Limiter, auditor *audit.Logger, log *slog.Logger, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{limiter: limiter, auditor: auditor, log: log}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		log.Info("rate limiting disabled")
	}
	return m
}

// Limit is the chi middleware.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := metadata.GetClientIP(ctx)
		result := m.limiter.Allow(ctx, ip, time.Now().UTC())

		// Limit headers go out on every response, allowed or not.
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.ResetAt.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		}

		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.RateLimitRejections.Inc()
			}
			// Best effort; denial audits follow the open policy.
			if _, err := m.auditor.Log(ctx, audit.Record{
				EventType: audit.EventAccessDenied,
				ClientIP:  ip,
				UserAgent: metadata.GetUserAgent(ctx),
				Action:    "rate limit exceeded: " + r.Method + " " + r.URL.Path,
				Outcome:   audit.OutcomeFailure,
			}); err != nil {
				m.log.Warn("failed to audit rate limit denial", "error", err)
			}

			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:       "rate_limit_exceeded",
				Description: "Too many requests. Please try again later.",
				RetryAfter:  result.RetryAfter,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
