package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/churrosoft/deck8-hub-go/internal/models"
)

const (
	// HeaderAPIKey carries the access key on HTTP and WebSocket requests.
	HeaderAPIKey     = "X-Api-Key"
	apiKeyQueryParam = "api-key"
)

// KeyFromRequest extracts an access key from the header, a bearer token,
// or the api-key query parameter.
func KeyFromRequest(r *http.Request) string {
	if k := r.Header.Get(HeaderAPIKey); k != "" {
		return k
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get(apiKeyQueryParam)
}

// Middleware rejects requests without a valid key unless in open mode.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}
		if name, ok := s.Verify(KeyFromRequest(r)); ok {
			slog.Debug("auth: request accepted", "client", name, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(&models.AppError{Code: CodeUnauthorized, Message: "missing or invalid access key"})
	})
}

// CodeUnauthorized is the error code of a rejected request.
const CodeUnauthorized = "UNAUTHORIZED"
