package listusers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"blog_service/internal/auth"
	resp "blog_service/internal/lib/api/response"
	sl "blog_service/internal/lib/logger"
	"blog_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

type UserInfo struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type Response struct {
	resp.Response
	Users []UserInfo `json:"results"`
}

// New lists accounts for the admin group. The role gate runs in the
// middleware chain before this handler is reached.
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listusers.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		limit := queryInt(r, "limit", defaultLimit)
		if limit <= 0 || limit > maxLimit {
			limit = defaultLimit
		}
		offset := queryInt(r, "offset", 0)
		if offset < 0 {
			offset = 0
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		users, err := authService.ListUsers(ctx, limit, offset)
		if err != nil {
			log.Error("failed to list users", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		infos := make([]UserInfo, 0, len(users))
		for _, u := range users {
			infos = append(infos, UserInfo{
				ID:    u.ID,
				Name:  u.Name,
				Email: u.Email,
				Role:  u.Role,
			})
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Users:    infos,
		})
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return v
}
