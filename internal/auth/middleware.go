package auth

import (
	"context"
	"net/http"
	"strings"

	"kiosk-backend/internal/models"
)

type ctxKey struct{}

type tokenKey struct{}

func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the user attached by Middleware, if any.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(models.User)
	return u, ok
}

// TokenFrom returns the bearer token the request authenticated with.
func TokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// Allowed reports whether user may enter a route open to roles.
func Allowed(user *models.User, roles ...models.Role) bool {
	if user == nil {
		return false
	}
	for _, r := range roles {
		if user.Role == r {
			return true
		}
	}
	return false
}

// BearerToken reads the Authorization header, falling back to the token
// query parameter used by WebSocket clients.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// Middleware attaches the authenticated user to the request context. Requests
// without a valid token pass through anonymously.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token != "" {
			if user, err := s.Authenticate(token); err == nil {
				ctx := WithUser(r.Context(), user)
				ctx = context.WithValue(ctx, tokenKey{}, token)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRoles rejects anonymous requests with 401 and other roles with 403.
// onDeny writes the response body.
func RequireRoles(onDeny func(w http.ResponseWriter, r *http.Request, err error), roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				onDeny(w, r, ErrUnauthorized)
				return
			}
			if !Allowed(&user, roles...) {
				onDeny(w, r, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
