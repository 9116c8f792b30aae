package jwt

import (
	"errors"
	"fmt"
	"time"

	"blog_service/internal/models"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every parse failure: bad signature, malformed
// payload, wrong signing method, expired. Callers never see partial claims.
var ErrInvalidToken = errors.New("invalid token")

// Purpose separates full API sessions from the short-lived token issued
// after a recovery code check. A recovery token only authorizes the
// password update step.
type Purpose string

const (
	PurposeSession  Purpose = "session"
	PurposeRecovery Purpose = "recovery"
)

type Claims struct {
	Role    models.Role `json:"role,omitempty"`
	UserID  int64       `json:"uid,omitempty"`
	Purpose Purpose     `json:"purpose"`
	jwtlib.RegisteredClaims
}

// Codec signs and verifies bearer tokens with a symmetric secret loaded
// once at startup. The codec is immutable and safe for concurrent use.
type Codec struct {
	secret      []byte
	sessionTTL  time.Duration
	recoveryTTL time.Duration
}

func NewCodec(secret string, sessionTTL, recoveryTTL time.Duration) *Codec {
	return &Codec{
		secret:      []byte(secret),
		sessionTTL:  sessionTTL,
		recoveryTTL: recoveryTTL,
	}
}

// IssueSession produces the long-lived token handed out on login. It
// carries role and user id for downstream authorization decisions.
func (c *Codec) IssueSession(user models.User) (string, error) {
	const op = "jwt.IssueSession"

	now := time.Now().UTC()

	claims := Claims{
		Role:    user.Role,
		UserID:  user.ID,
		Purpose: PurposeSession,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.sessionTTL)),
		},
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// IssueRecovery produces the narrow token returned after a successful
// recovery code check. Subject only, short expiry, so a leaked recovery
// token cannot be replayed as a full session.
func (c *Codec) IssueRecovery(email string) (string, error) {
	const op = "jwt.IssueRecovery"

	now := time.Now().UTC()

	claims := Claims{
		Purpose: PurposeRecovery,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(c.recoveryTTL)),
		},
	}

	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Parse verifies signature and expiry and returns the decoded claims.
// No clock-skew leeway is granted.
func (c *Codec) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwtlib.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Purpose != PurposeSession && claims.Purpose != PurposeRecovery {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
