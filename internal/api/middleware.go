// Package api implements the flownote HTTP API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// tokenQueryParam carries the token for clients that cannot set headers,
// such as a browser EventSource on /events.
const tokenQueryParam = "access_token"

// AuthMiddleware checks the bearer token when enabled is true. The token is
// read from the Authorization header, falling back to the access_token query
// parameter on GET requests.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := requestToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="flownote"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestToken(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.CutPrefix(auth, "Bearer ")
	}
	if r.Method == http.MethodGet {
		if t := r.URL.Query().Get(tokenQueryParam); t != "" {
			return t, true
		}
	}
	return "", false
}
