package authn_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"blog_service/internal/http_server/middleware/authn"
	"blog_service/internal/lib/jwt"
	"blog_service/internal/models"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testCodec() *jwt.Codec {
	return jwt.NewCodec(testSecret, time.Hour, 5*time.Minute)
}

func echoSubject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authn.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "no claims", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Subject))
	}
}

func guardedHandler(codec *jwt.Codec, extra ...func(http.Handler) http.Handler) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var h http.Handler = echoSubject()
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	return authn.New(log, codec)(h)
}

func doRequest(t *testing.T, h http.Handler, authHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestMissingHeader(t *testing.T) {
	rec := doRequest(t, guardedHandler(testCodec()), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":false`)
}

func TestMalformedToken(t *testing.T) {
	rec := doRequest(t, guardedHandler(testCodec()), "Bearer not-a-token")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpiredToken(t *testing.T) {
	expired := jwt.NewCodec(testSecret, -time.Minute, -time.Minute)

	token, err := expired.IssueSession(models.User{ID: 1, Email: "ana@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	rec := doRequest(t, guardedHandler(testCodec()), "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrongSecret(t *testing.T) {
	other := jwt.NewCodec("other-secret", time.Hour, 5*time.Minute)

	token, err := other.IssueSession(models.User{ID: 1, Email: "ana@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	rec := doRequest(t, guardedHandler(testCodec()), "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidTokenInjectsClaims(t *testing.T) {
	codec := testCodec()

	token, err := codec.IssueSession(models.User{ID: 1, Email: "ana@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	rec := doRequest(t, guardedHandler(codec), "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ana@x.com", rec.Body.String())
}

func TestBearerPrefixIsOptional(t *testing.T) {
	codec := testCodec()

	token, err := codec.IssueSession(models.User{ID: 1, Email: "ana@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	rec := doRequest(t, guardedHandler(codec), token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSessionRejectsRecoveryToken(t *testing.T) {
	codec := testCodec()

	token, err := codec.IssueRecovery("ana@x.com")
	require.NoError(t, err)

	h := guardedHandler(codec, authn.RequireSession())

	rec := doRequest(t, h, "Bearer "+token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	codec := testCodec()
	h := guardedHandler(codec, authn.RequireRole(models.RoleAdmin))

	userToken, err := codec.IssueSession(models.User{ID: 1, Email: "ana@x.com", Role: models.RoleUser})
	require.NoError(t, err)

	rec := doRequest(t, h, "Bearer "+userToken)
	require.Equal(t, http.StatusForbidden, rec.Code)

	adminToken, err := codec.IssueSession(models.User{ID: 2, Email: "root@x.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	rec = doRequest(t, h, "Bearer "+adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
}
