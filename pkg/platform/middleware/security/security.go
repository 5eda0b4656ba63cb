// Package security attaches the response headers required for handling
// medical data over the public internet. Header injection is presentation
// only and must never block the response itself.
package security

import "net/http"

// baseHeaders is attached to every response.
var baseHeaders = map[string]string{
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Content-Security-Policy":   "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
	"Permissions-Policy":        "geolocation=(), microphone=(), camera=()",
}

// noStoreHeaders is added on routes that may carry PHI in either direction.
var noStoreHeaders = map[string]string{
	"Cache-Control": "no-store, no-cache, must-revalidate, private",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

// Headers sets the standard security header set on every response.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range baseHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore forbids caching of the response. Apply to PHI-bearing routes.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range noStoreHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}
