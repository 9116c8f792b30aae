package listusers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog_service/internal/auth"
	"blog_service/internal/http_server/handlers/listusers"
	"blog_service/internal/http_server/middleware/authn"
	"blog_service/internal/lib/jwt"
	"blog_service/internal/models"
	"blog_service/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) SendRecoveryEmail(context.Context, models.RecoveryEmail) error { return nil }

type fixture struct {
	guarded http.Handler
	service *auth.Auth
	repo    *memory.Repo
	codec   *jwt.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.New()
	codec := jwt.NewCodec("test-secret", time.Hour, 5*time.Minute)
	svc := auth.New(log, repo, repo, repo, nopPublisher{}, codec, 15*time.Minute)

	_, err := svc.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "Root", "root@x.com", "secret2")
	require.NoError(t, err)
	repo.SetRole("root@x.com", models.RoleAdmin)

	var h http.Handler = listusers.New(log, svc)
	h = authn.RequireRole(models.RoleAdmin)(h)
	h = authn.RequireSession()(h)
	h = authn.New(log, codec)(h)

	return &fixture{guarded: h, service: svc, repo: repo, codec: codec}
}

func (f *fixture) get(t *testing.T, email string) *httptest.ResponseRecorder {
	t.Helper()

	user, err := f.repo.UserByEmail(context.Background(), email)
	require.NoError(t, err)

	token, err := f.codec.IssueSession(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	f.guarded.ServeHTTP(rec, req)

	return rec
}

func TestListUsersAsAdmin(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "root@x.com")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status bool `json:"status"`
		Users  []struct {
			ID    int64       `json:"id"`
			Email string      `json:"email"`
			Role  models.Role `json:"role"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Status)
	require.Len(t, resp.Users, 2)
	require.Equal(t, "ana@x.com", resp.Users[0].Email)
	require.Equal(t, models.RoleAdmin, resp.Users[1].Role)
}

func TestListUsersForbiddenForUserRole(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "ana@x.com")
	require.Equal(t, http.StatusForbidden, rec.Code)
}
