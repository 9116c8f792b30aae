// Package memory is an in-memory credential store used by tests. It
// mirrors the behavior of the postgres repository, including the
// conditional single-use clearing of recovery codes.
package memory

import (
	"context"
	"sync"
	"time"

	"blog_service/internal/models"
	"blog_service/internal/storage"
)

type Repo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*models.User // keyed by email
}

func New() *Repo {
	return &Repo{
		nextID: 1,
		users:  make(map[string]*models.User),
	}
}

func (r *Repo) SaveUser(_ context.Context, name, email string, passHash []byte, role models.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[email]; ok {
		return 0, storage.ErrUserExists
	}

	id := r.nextID
	r.nextID++

	r.users[email] = &models.User{
		ID:       id,
		Name:     name,
		Email:    email,
		PassHash: passHash,
		Role:     role,
	}

	return id, nil
}

func (r *Repo) UserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return *u, nil
}

func (r *Repo) Users(_ context.Context, limit, offset int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		all = append(all, *u)
	}

	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[j].ID < all[i].ID {
				all[i], all[j] = all[j], all[i]
			}
		}
	}

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (r *Repo) SetRecoveryCode(_ context.Context, userID int64, codeHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.byID(userID)
	if u == nil {
		return storage.ErrUserNotFound
	}

	exp := expiresAt.UTC()
	u.RecoveryCodeHash = &codeHash
	u.RecoveryCodeExpiresAt = &exp

	return nil
}

func (r *Repo) ConsumeRecoveryCode(_ context.Context, userID int64, codeHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := r.byID(userID)
	if u == nil || u.RecoveryCodeHash == nil || *u.RecoveryCodeHash != codeHash {
		return false, nil
	}

	u.RecoveryCodeHash = nil
	u.RecoveryCodeExpiresAt = nil

	return true, nil
}

func (r *Repo) UpdatePassword(_ context.Context, email string, passHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[email]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.PassHash = passHash

	return nil
}

// SetRole exists so tests can promote an account to admin.
func (r *Repo) SetRole(email string, role models.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[email]; ok {
		u.Role = role
	}
}

// ExpireRecoveryCode backdates the pending expiry so tests can exercise
// the expired-code path.
func (r *Repo) ExpireRecoveryCode(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[email]; ok && u.RecoveryCodeExpiresAt != nil {
		expired := time.Now().UTC().Add(-time.Minute)
		u.RecoveryCodeExpiresAt = &expired
	}
}

func (r *Repo) byID(id int64) *models.User {
	for _, u := range r.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}
