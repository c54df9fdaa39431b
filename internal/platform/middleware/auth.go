package middleware

import (
	"log/slog"
	"net/http"

	dErrors "github.com/UoA-eResearch/driveoff/pkg/domainerrors"
)

// KeyValidator checks a raw API key against a stored keyring for one action.
type KeyValidator interface {
	Validate(rawKey, action string) error
}

// apiKeyFrom pulls the caller's key from the x-api-key header, falling back
// to the api-key query parameter for clients that cannot set headers.
func apiKeyFrom(r *http.Request) string {
	if key := r.Header.Get("x-api-key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api-key")
}

// RequireAPIKey guards a route with keyring validation for the given action.
func RequireAPIKey(validator KeyValidator, action string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if err := validator.Validate(apiKeyFrom(r), action); err != nil {
				logger.WarnContext(ctx, "rejected API key",
					"action", action,
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				status := http.StatusUnauthorized
				body := `{"error":"unauthorized"}`
				if dErrors.CodeOf(err) == dErrors.CodeForbidden {
					status = http.StatusForbidden
					body = `{"error":"forbidden"}`
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
