package session

import (
	"log/slog"
	"net/http"

	"blog_service/internal/http_server/middleware/authn"
	resp "blog_service/internal/lib/api/response"
	"blog_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	UserID int64       `json:"user_id"`
}

// New answers "who am I" from the validated claims alone; the store is not
// consulted.
func New(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.session.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		claims, ok := authn.ClaimsFromContext(r.Context())
		if !ok {
			log.Error("no claims in context on protected route")

			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("invalid token"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Email:    claims.Subject,
			Role:     claims.Role,
			UserID:   claims.UserID,
		})
	}
}
