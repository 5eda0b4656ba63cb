package ratelimit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetdocs/internal/hipaa/audit"
	"vetdocs/internal/hipaa/phi"
	"vetdocs/pkg/platform/httputil"
	"vetdocs/pkg/platform/middleware/metadata"
)

func newTestMiddleware(t *testing.T, perMinute int, opts ...MiddlewareOption) (*Middleware, *audit.MemoryStore) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditStore := audit.NewMemoryStore()
	auditor := audit.NewLogger(auditStore, phi.NewDetector(), log)
	limiter := NewLimiter(NewMemoryStore(), perMinute, log)
	return NewMiddleware(limiter, auditor, log, opts...), auditStore
}

func serve(m *Middleware, req *http.Request) *httptest.ResponseRecorder {
	handler := metadata.ClientMetadata(m.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAllowsUnderLimit(t *testing.T) {
	m, _ := newTestMiddleware(t, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	req.RemoteAddr = "203.0.113.7:51000"

	rec := serve(m, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareDeniesOverLimit(t *testing.T) {
	m, auditStore := newTestMiddleware(t, 3)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		req.Header.Set("User-Agent", "vetdocs-test")
		return req
	}

	for i := 0; i < 3; i++ {
		rec := serve(m, newReq())
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := serve(m, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)
	assert.GreaterOrEqual(t, body.RetryAfter, 1)

	// The denial leaves an access-denied audit trail with the client IP.
	records, err := auditStore.Query(context.Background(), audit.Filter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, audit.EventAccessDenied, records[0].EventType)
	assert.Equal(t, audit.OutcomeFailure, records[0].Outcome)
	assert.Equal(t, "203.0.113.7", records[0].ClientIP)
	assert.Equal(t, "vetdocs-test", records[0].UserAgent)
	assert.Contains(t, records[0].Action, "POST /api/contact")
}

func TestMiddlewareIsolatesClientIPs(t *testing.T) {
	m, _ := newTestMiddleware(t, 1)

	first := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	first.RemoteAddr = "203.0.113.7:51000"
	require.Equal(t, http.StatusOK, serve(m, first).Code)

	blocked := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	blocked.RemoteAddr = "203.0.113.7:51001"
	assert.Equal(t, http.StatusTooManyRequests, serve(m, blocked).Code)

	other := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	other.RemoteAddr = "198.51.100.9:42000"
	assert.Equal(t, http.StatusOK, serve(m, other).Code)
}

func TestMiddlewareDisabled(t *testing.T) {
	m, auditStore := newTestMiddleware(t, 1, WithDisabled(true))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
		req.RemoteAddr = "203.0.113.7:51000"
		rec := serve(m, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}

	records, err := auditStore.Query(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLimiterFailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(failingRLStore{}, 3, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result := limiter.Allow(context.Background(), "client-A", time.Now().UTC())
	assert.True(t, result.Allowed)
	assert.Equal(t, 3, result.Limit)
}

type failingRLStore struct{}

func (failingRLStore) Allow(context.Context, string, int, time.Duration, time.Time) (*Result, error) {
	return nil, assert.AnError
}

func (failingRLStore) Reset(context.Context, string) error { return assert.AnError }
