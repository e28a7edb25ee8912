package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/emioop/vallyfab-api/internal/auth"
)

type ctxKey int

const identityKey ctxKey = 0

// SessionLookup is satisfied by *auth.Sessions.
type SessionLookup interface {
	Lookup(ctx context.Context, token string) (auth.Identity, error)
}

// IdentityFrom returns the caller's identity, if the auth middleware resolved one.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// Authenticate resolves a bearer token into an identity. It does not reject
// anonymous requests; RequireAuth does.
func Authenticate(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token != "" {
				id, err := sessions.Lookup(r.Context(), token)
				if err == nil {
					r = r.WithContext(context.WithValue(r.Context(), identityKey, id))
				} else if !errors.Is(err, auth.ErrNoSession) {
					writeError(w, http.StatusInternalServerError, "session lookup failed")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized Request")
			return
		}
		next(w, r)
	}
}

func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || id.Role != auth.RoleAdmin {
			writeError(w, http.StatusUnauthorized, "Unauthorized Request")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
