package updatepassword_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog_service/internal/auth"
	"blog_service/internal/http_server/handlers/updatepassword"
	"blog_service/internal/http_server/middleware/authn"
	"blog_service/internal/lib/jwt"
	"blog_service/internal/models"
	"blog_service/internal/storage/memory"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) SendRecoveryEmail(context.Context, models.RecoveryEmail) error { return nil }

type fixture struct {
	guarded http.Handler
	service *auth.Auth
	codec   *jwt.Codec
}

// The handler is mounted behind the route guard, as in production: update
// password accepts both session and recovery profiles, so only authn.New
// wraps it.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	codec := jwt.NewCodec("test-secret", time.Hour, 5*time.Minute)
	svc := auth.New(log, repo, repo, repo, nopPublisher{}, codec, 15*time.Minute)

	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	handler := updatepassword.New(log, validator.New(), svc)

	return &fixture{
		guarded: authn.New(log, codec)(handler),
		service: svc,
		codec:   codec,
	}
}

func (f *fixture) update(t *testing.T, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/user/fg/update/password", bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.guarded.ServeHTTP(rec, req)

	return rec
}

func TestUpdateWithRecoveryToken(t *testing.T) {
	f := newFixture(t)

	token, err := f.codec.IssueRecovery("ana@x.com")
	require.NoError(t, err)

	rec := f.update(t, token, `{"password":"newsecret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, _, err = f.service.Login(context.Background(), "ana@x.com", "newsecret")
	require.NoError(t, err)

	_, _, err = f.service.Login(context.Background(), "ana@x.com", "secret1")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestUpdateWithSessionToken(t *testing.T) {
	f := newFixture(t)

	token, _, err := f.service.Login(context.Background(), "ana@x.com", "secret1")
	require.NoError(t, err)

	rec := f.update(t, token, `{"password":"newsecret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateWithoutToken(t *testing.T) {
	f := newFixture(t)

	rec := f.update(t, "", `{"password":"newsecret"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateTargetsTokenSubjectOnly(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Register(context.Background(), "Bob", "bob@x.com", "bobsecret")
	require.NoError(t, err)

	token, err := f.codec.IssueRecovery("ana@x.com")
	require.NoError(t, err)

	// The body carries no account reference; only Ana's password changes.
	rec := f.update(t, token, `{"password":"newsecret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, _, err = f.service.Login(context.Background(), "bob@x.com", "bobsecret")
	require.NoError(t, err)
}

func TestUpdatePasswordTooShort(t *testing.T) {
	f := newFixture(t)

	token, err := f.codec.IssueRecovery("ana@x.com")
	require.NoError(t, err)

	rec := f.update(t, token, `{"password":"abc"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
