package sendcode_test

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
	"blog_service/internal/http_server/handlers/sendcode"
	"blog_service/internal/lib/jwt"
	"blog_service/internal/models"
	"blog_service/internal/storage/memory"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	sent []models.RecoveryEmail
}

func (p *capturePublisher) SendRecoveryEmail(_ context.Context, msg models.RecoveryEmail) error {
	p.sent = append(p.sent, msg)
	return nil
}

func newFixture(t *testing.T) (http.HandlerFunc, *capturePublisher) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	publisher := &capturePublisher{}
	codec := jwt.NewCodec("test-secret", time.Hour, 5*time.Minute)
	svc := auth.New(log, repo, repo, repo, publisher, codec, 15*time.Minute)

	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)

	return sendcode.New(log, validator.New(), svc), publisher
}

func post(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/user/fg/send/email", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestSendCodeDispatches(t *testing.T) {
	h, publisher := newFixture(t)

	rec := post(t, h, `{"email":"ana@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, publisher.sent, 1)
	require.Equal(t, "ana@x.com", publisher.sent[0].To)
	require.Len(t, publisher.sent[0].Code, 5)
	require.True(t, publisher.sent[0].ExpiresAt.After(time.Now().UTC()))
}

func TestSendCodeUnknownEmail(t *testing.T) {
	h, publisher := newFixture(t)

	rec := post(t, h, `{"email":"nobody@x.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "email not registered")
	require.Empty(t, publisher.sent)
}

func TestSendCodeInvalidEmail(t *testing.T) {
	h, _ := newFixture(t)

	rec := post(t, h, `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
