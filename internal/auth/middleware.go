package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const spectatorKey contextKey = "spectator"

// Middleware returns an HTTP middleware that validates JWT tokens.
// Extracts the token from the Authorization header (Bearer scheme)
// and stores the spectator name in the request context.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, `{"error":"invalid authorization format"}`, http.StatusUnauthorized)
				return
			}

			claims, err := jwtMgr.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSpectator(r.Context(), claims.Spectator)))
		})
	}
}

// WithSpectator stores the authenticated spectator name in ctx.
func WithSpectator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, spectatorKey, name)
}

// SpectatorFromContext extracts the authenticated spectator from the request context.
func SpectatorFromContext(ctx context.Context) string {
	name, _ := ctx.Value(spectatorKey).(string)
	return name
}
