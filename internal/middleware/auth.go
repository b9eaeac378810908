package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/service"
)

type ctxKey string

const userKey ctxKey = "user"

// Authenticator resolves a bearer token to the user it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token
// with 401 and stores the authenticated user in the request context. Only
// service.ErrInvalidToken means the token is bad; any other failure is a
// 500 so clients keep their credentials.
func BearerAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			user, err := auth.Authenticate(r.Context(), token)
			switch {
			case errors.Is(err, service.ErrInvalidToken):
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "could not validate credentials", http.StatusUnauthorized)
				return
			case err != nil:
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireRole responds 403 unless the authenticated user holds one of roles.
// It must run after BearerAuth.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r.Context())
			if !ok {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, user.Role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUserFromContext extracts the authenticated user from ctx.
func GetUserFromContext(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(userKey).(models.User)
	return u, ok
}
