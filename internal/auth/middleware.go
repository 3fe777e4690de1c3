package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Middleware verifies bearer tokens against the given OIDC issuer and puts
// the subject into the request context. Gateway callback routes are NOT
// behind this: MONETA authenticates with its signature, not a token.
func Middleware(issuer string) func(http.Handler) http.Handler {
	if issuer == "" {
		panic("OIDC issuer not configured")
	}

	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		panic(fmt.Sprintf("Failed to create OIDC provider: %v", err))
	}

	// SkipClientIDCheck → no client ID required
	verifier := provider.Verifier(&oidc.Config{
		SkipClientIDCheck: true,
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if _, err := verifier.Verify(r.Context(), token); err != nil {
				http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
				return
			}

			userID, err := ExtractUserIDFromJWT(token)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores a verified subject in the context. Only the middleware
// writes it in production; tests use it to stand in for the middleware.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the subject the middleware stored, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
