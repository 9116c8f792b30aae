package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog_service/internal/auth"
	"blog_service/internal/config"
	"blog_service/internal/http_server/handlers/checkcode"
	"blog_service/internal/http_server/handlers/listusers"
	"blog_service/internal/http_server/handlers/login"
	"blog_service/internal/http_server/handlers/register"
	"blog_service/internal/http_server/handlers/sendcode"
	"blog_service/internal/http_server/handlers/session"
	"blog_service/internal/http_server/handlers/updatepassword"
	"blog_service/internal/http_server/middleware/authn"
	"blog_service/internal/http_server/middleware/ratelimit"
	tokencodec "blog_service/internal/lib/jwt"
	"blog_service/internal/models"
	"blog_service/internal/rabbitmq"
	"blog_service/internal/storage/postgres"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting blog service", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	codec := tokencodec.NewCodec(cfg.Tokens.Secret, cfg.Tokens.SessionTTL, cfg.Tokens.RecoveryTTL)

	authService := auth.New(log, storage, storage, storage, msgBroker, codec, cfg.Recovery.CodeTTL)

	router := setupRouter(log, authService, codec)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("server stopped gracefully")
	}
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	codec *tokencodec.Codec,
) *chi.Mux {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	guard := authn.New(log, codec)

	r.Route("/user", func(r chi.Router) {
		r.With(ratelimit.Register()).Post("/register",
			register.New(log, validate, authService),
		)
		r.With(ratelimit.Login()).Post("/login",
			login.New(log, validate, authService),
		)
		r.With(ratelimit.RecoverySend()).Post("/fg/send/email",
			sendcode.New(log, validate, authService),
		)
		r.With(ratelimit.RecoveryCheck()).Post("/fg/check/code",
			checkcode.New(log, validate, authService),
		)

		// A recovery-profile token is accepted only for the password
		// update; session introspection requires a full session.
		r.With(guard).Post("/fg/update/password",
			updatepassword.New(log, validate, authService),
		)
		r.With(guard, authn.RequireSession()).Get("/session",
			session.New(log),
		)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(guard, authn.RequireSession(), authn.RequireRole(models.RoleAdmin))
		r.Get("/users", listusers.New(log, authService))
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
