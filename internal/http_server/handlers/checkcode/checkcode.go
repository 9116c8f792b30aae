package checkcode

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"blog_service/internal/auth"
	resp "blog_service/internal/lib/api/response"
	sl "blog_service/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

type Response struct {
	resp.Response
	Token string `json:"token"`
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.checkcode.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.ValidationError(validateErr))

				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("invalid request"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		token, err := authService.CheckRecoveryCode(ctx, req.Email, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrNoPendingCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("no recovery code pending"))
			case errors.Is(err, auth.ErrCodeExpired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("code expired"))
			case errors.Is(err, auth.ErrInvalidCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("invalid code"))
			default:
				log.Error("failed to check recovery code", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("recovery code accepted")

		render.JSON(w, r, Response{
			Response: resp.Success("code valid"),
			Token:    token,
		})
	}
}
