package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/swiftmeds/authcore/internal/authcore/domain"
	"github.com/swiftmeds/authcore/pkg/httpx"
	"github.com/swiftmeds/authcore/pkg/jwtx"
	"github.com/swiftmeds/authcore/pkg/slogx"
)

type ctxKey string

const ctxKeyUser ctxKey = "authcore.user"

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authn verifies the bearer access token, loads the account behind it and
// rejects deactivated accounts. The authenticated user rides on the request
// context for downstream handlers.
func (ro *Router) authn() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := bearerToken(r)
			if raw == "" {
				httpx.Error(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			claims, err := ro.TokenService.Verify(ctx, raw, jwtx.KindAccess)
			if err != nil {
				httpx.Error(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			user, err := ro.UserService.GetByUsername(ctx, claims.Subject)
			if err != nil {
				// The account may have been deleted after the token was
				// minted.
				httpx.Error(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			// Deactivated accounts get the same generic answer as bad
			// tokens so a stolen token cannot reveal the account state.
			if !user.Active {
				httpx.Error(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx = withUser(ctx, user)
			ctx = httpx.WithUsername(ctx, user.Username)
			ctx = slogx.WithContext(ctx, slogx.FromContext(ctx).With("username", user.Username))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireAdmin gates a route on the admin role. It assumes authn already
// ran.
func (ro *Router) requireAdmin() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userFromContext(r.Context())
			if !ok || user.Role != domain.RoleAdmin {
				httpx.Error(w, http.StatusForbidden, "Not enough permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(domain.User)
	return u, ok
}
