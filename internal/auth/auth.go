package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blog_service/internal/lib/jwt"
	sl "blog_service/internal/lib/logger"
	"blog_service/internal/lib/passcode"
	"blog_service/internal/models"
	"blog_service/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so login responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrEmailNotRegistered = errors.New("email not registered")
	ErrNoPendingCode      = errors.New("no recovery code pending")
	ErrCodeExpired        = errors.New("recovery code expired")
	ErrInvalidCode        = errors.New("invalid recovery code")
)

type UserSaver interface {
	SaveUser(ctx context.Context, name, email string, passHash []byte, role models.Role) (uid int64, err error)
	UpdatePassword(ctx context.Context, email string, passHash []byte) error
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	Users(ctx context.Context, limit, offset int) ([]models.User, error)
}

type RecoveryStore interface {
	SetRecoveryCode(ctx context.Context, userID int64, codeHash string, expiresAt time.Time) error
	ConsumeRecoveryCode(ctx context.Context, userID int64, codeHash string) (bool, error)
}

// CodePublisher hands the plaintext recovery code to the email-delivery
// collaborator. Delivery itself happens out of process.
type CodePublisher interface {
	SendRecoveryEmail(ctx context.Context, msg models.RecoveryEmail) error
}

type Auth struct {
	log         *slog.Logger
	usrSaver    UserSaver
	usrProvider UserProvider
	recovery    RecoveryStore
	publisher   CodePublisher
	codec       *jwt.Codec
	codeTTL     time.Duration
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	recoveryStore RecoveryStore,
	publisher CodePublisher,
	codec *jwt.Codec,
	codeTTL time.Duration,
) *Auth {
	return &Auth{
		log:         log,
		usrSaver:    userSaver,
		usrProvider: userProvider,
		recovery:    recoveryStore,
		publisher:   publisher,
		codec:       codec,
		codeTTL:     codeTTL,
	}
}

// Register hashes the password and inserts the record. The store's unique
// constraint on email decides duplicates; two racing registrations are
// serialized there, not here.
func (a *Auth) Register(ctx context.Context, name, email, password string) (int64, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, name, email, passHash, models.RoleUser)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return 0, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		log.Error("failed to save user", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("uid", id))

	return id, nil
}

// Login verifies credentials and issues a session token.
func (a *Auth) Login(ctx context.Context, email, password string) (token string, userID int64, err error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", 0, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials")
		return "", 0, ErrInvalidCredentials
	}

	token, err = a.codec.IssueSession(user)
	if err != nil {
		log.Error("failed to issue session token", sl.Err(err))
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.Int64("uid", user.ID))

	return token, user.ID, nil
}

// RequestRecoveryCode generates a fresh code, persists its hash and expiry
// and hands the plaintext off for email delivery. A pending code from an
// earlier request is overwritten.
func (a *Auth) RequestRecoveryCode(ctx context.Context, email string) error {
	const op = "auth.RequestRecoveryCode"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("email not registered")
			return ErrEmailNotRegistered
		}

		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	code := passcode.Generate()

	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash recovery code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := time.Now().UTC().Add(a.codeTTL)

	if err := a.recovery.SetRecoveryCode(ctx, user.ID, string(codeHash), expiresAt); err != nil {
		log.Error("failed to store recovery code", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := models.RecoveryEmail{
		To:        user.Email,
		Code:      code,
		ExpiresAt: expiresAt,
	}

	if err := a.publisher.SendRecoveryEmail(ctx, msg); err != nil {
		log.Error("failed to dispatch recovery email", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("recovery code dispatched", slog.Int64("uid", user.ID))

	return nil
}

// CheckRecoveryCode verifies a submitted code against the pending hash.
// A mismatch leaves the code intact so the user may retry until expiry; an
// expired code is likewise left in place and only superseded by a new
// request. On a match both recovery fields are cleared atomically and a
// recovery-profile token is issued.
func (a *Auth) CheckRecoveryCode(ctx context.Context, email, code string) (string, error) {
	const op = "auth.CheckRecoveryCode"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("email not registered")
			return "", ErrNoPendingCode
		}

		log.Error("failed to get user", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if !user.HasPendingRecoveryCode() {
		log.Warn("no recovery code pending")
		return "", ErrNoPendingCode
	}

	if time.Now().UTC().After(user.RecoveryCodeExpiresAt.UTC()) {
		log.Warn("recovery code expired")
		return "", ErrCodeExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.RecoveryCodeHash), []byte(code)); err != nil {
		log.Info("recovery code mismatch")
		return "", ErrInvalidCode
	}

	consumed, err := a.recovery.ConsumeRecoveryCode(ctx, user.ID, *user.RecoveryCodeHash)
	if err != nil {
		log.Error("failed to consume recovery code", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if !consumed {
		// A racing check consumed the code first.
		log.Warn("recovery code already consumed")
		return "", ErrInvalidCode
	}

	token, err := a.codec.IssueRecovery(user.Email)
	if err != nil {
		log.Error("failed to issue recovery token", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("recovery code accepted", slog.Int64("uid", user.ID))

	return token, nil
}

// UpdatePassword sets a new password for the account named by the verified
// claims. The email comes from the token, never from the request body, so
// a recovery token can only reset its own account.
func (a *Auth) UpdatePassword(ctx context.Context, email, password string) error {
	const op = "auth.UpdatePassword"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.UpdatePassword(ctx, email, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password updated")

	return nil
}

// ListUsers returns a page of accounts for the admin surface.
func (a *Auth) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "auth.ListUsers"

	users, err := a.usrProvider.Users(ctx, limit, offset)
	if err != nil {
		a.log.Error("failed to list users", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
