// Package auth guards the admin-only surface (audit queries, retention
// execution, breach reports, file deletion) with bearer JWTs.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"vetdocs/pkg/platform/httputil"
)

// Actor identifies the authenticated caller for audit trails.
type Actor struct {
	ID    string
	Email string
	Role  string
}

type contextKeyActor struct{}

// DeniedFunc is invoked when a request is rejected so the caller can record
// an access-denied audit event. Best effort; must not block the response.
type DeniedFunc func(r *http.Request, reason string)

type Middleware struct {
	signingKey []byte
	onDenied   DeniedFunc
}

func New(signingKey string, onDenied DeniedFunc) *Middleware {
	return &Middleware{signingKey: []byte(signingKey), onDenied: onDenied}
}

// RequireAdmin rejects requests without a valid HS256 bearer token carrying
// role=admin. The actor is placed in the context for downstream audit calls.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.authenticate(r)
		if err != nil {
			m.deny(r, err.Error())
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "valid bearer token required")
			return
		}
		if actor.Role != "admin" {
			m.deny(r, "insufficient role")
			httputil.WriteError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (Actor, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return Actor{}, fmt.Errorf("missing bearer token")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return Actor{}, fmt.Errorf("invalid token")
	}

	actor := Actor{}
	if sub, err := claims.GetSubject(); err == nil {
		actor.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		actor.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		actor.Role = role
	}
	return actor, nil
}

func (m *Middleware) deny(r *http.Request, reason string) {
	if m.onDenied != nil {
		m.onDenied(r, reason)
	}
}

// WithActor injects an actor into the context; exported for tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKeyActor{}, actor)
}

// GetActor retrieves the authenticated actor, if any.
func GetActor(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor{}).(Actor)
	return actor, ok
}
