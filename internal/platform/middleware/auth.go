package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "landledger/pkg/domain"
	"landledger/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the account it was
// issued to.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.Account, error)
}

// RequireAuth authenticates the request from the Authorization header and
// binds the resolved account as the caller identity. Services read it back
// via requestcontext.Actor; nothing downstream ever trusts an account taken
// from the request body.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(r),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			account, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, account)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
