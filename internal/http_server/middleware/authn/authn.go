// Package authn is the route guard: it validates the bearer token on
// protected routes and injects the decoded claims into the request
// context for handlers downstream.
package authn

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"blog_service/internal/lib/api/response"
	"blog_service/internal/lib/jwt"
	"blog_service/internal/models"

	"github.com/go-chi/render"
)

type claimsKey struct{}

// New returns the middleware that parses the Authorization header. On a
// missing or invalid token the request is answered with 401 and never
// reaches the handler.
func New(log *slog.Logger, codec *jwt.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn.New"

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, r, "missing token")
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims, err := codec.Parse(tokenStr)
			if err != nil {
				log.Warn("invalid token", slog.String("op", op))
				unauthorized(w, r, "invalid token")
				return
			}

			ctx := ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects recovery-profile tokens. The recovery token only
// authorizes the password update step, never general API access.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || claims.Purpose != jwt.PurposeSession {
				unauthorized(w, r, "invalid token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route group on the claims' role. It runs after New,
// so the role check never happens before signature and expiry validation.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "invalid token")
				return
			}

			if claims.Role != role {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("insufficient role"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ContextWithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*jwt.Claims)
	return claims, ok
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(msg))
}
