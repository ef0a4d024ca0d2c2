package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fieldops/opsboard/pkg/composables"
)

// ForwardToken places the caller's bearer token on the request context so the
// API client can act on the user's behalf.
func ForwardToken() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				r = r.WithContext(composables.WithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("bearer ") && strings.EqualFold(auth[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	// browsers cannot set headers on websocket upgrades
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}
	return ""
}
