package mid

import (
	"context"
	"net/http"
	"strings"

	"github.com/exson6969/xplorer/pkg/auth"
)

// TokenVerifier checks a bearer token and returns the caller's identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

type ctxKey struct{}

// IdentityFrom returns the verified identity stored by Auth, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(auth.Identity)
	return id, ok
}

// Auth returns middleware that requires a valid Authorization: Bearer token
// and stores the verified identity in the request context.
func Auth(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			id, err := v.Verify(strings.TrimSpace(authz[len("Bearer "):]))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		})
	}
}
