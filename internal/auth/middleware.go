// Package auth guards the HTTP-mode MCP endpoint with a bearer token.
package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// NewAuthMiddleware returns middleware that requires
//
//	Authorization: Bearer <token>
//
// on every request. The prefix is case-sensitive and the token must match
// exactly. Rejected requests get a 401 and are logged at Warn on logger,
// which may be nil. An empty token disables the check.
func NewAuthMiddleware(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || provided == "" || subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
				logger.WarnContext(r.Context(), "rejected mcp request",
					slog.String("remote_addr", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="dclist-mcp"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
