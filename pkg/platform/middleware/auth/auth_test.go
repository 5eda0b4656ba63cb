package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"

func signToken(t *testing.T, role string, key string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "admin-1",
		"email": "admin@example.com",
		"role":  role,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func protected(t *testing.T, mw *Middleware) (http.Handler, *bool) {
	reached := false
	h := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		require.True(t, ok)
		assert.Equal(t, "admin-1", actor.ID)
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	return h, &reached
}

func TestRequireAdmin(t *testing.T) {
	var deniedReason string
	mw := New(testKey, func(r *http.Request, reason string) { deniedReason = reason })

	t.Run("no token", func(t *testing.T) {
		h, reached := protected(t, mw)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/hipaa/audit-logs", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, *reached)
		assert.Equal(t, "missing bearer token", deniedReason)
	})

	t.Run("wrong key", func(t *testing.T) {
		h, reached := protected(t, mw)
		req := httptest.NewRequest(http.MethodGet, "/api/hipaa/audit-logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "admin", "other-key"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.False(t, *reached)
	})

	t.Run("non-admin role", func(t *testing.T) {
		h, reached := protected(t, mw)
		req := httptest.NewRequest(http.MethodGet, "/api/hipaa/audit-logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "staff", testKey))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.False(t, *reached)
	})

	t.Run("admin passes", func(t *testing.T) {
		h, reached := protected(t, mw)
		req := httptest.NewRequest(http.MethodGet, "/api/hipaa/audit-logs", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "admin", testKey))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, *reached)
	})
}
