package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blog_service/internal/config"
	"blog_service/internal/models"
	"blog_service/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// SaveUser inserts a credential record. The unique constraint on email is
// the authoritative duplicate guard; there is no existence pre-check.
func (r *PostgresRepo) SaveUser(ctx context.Context, name, email string, passHash []byte, role models.Role) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, name, email, string(passHash), role.String()).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, recovery_code_hash, recovery_code_expires_at
		FROM users
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PassHash,
		&u.Role,
		&u.RecoveryCodeHash,
		&u.RecoveryCodeExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (r *PostgresRepo) Users(ctx context.Context, limit, offset int) ([]models.User, error) {
	const op = "storage.postgres.Users"

	query := `
		SELECT id, name, email, role
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2;
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []models.User

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return users, nil
}

// SetRecoveryCode stores a pending code hash and its UTC expiry, replacing
// any previous pending code. Both columns are written together to keep the
// paired-nullability invariant.
func (r *PostgresRepo) SetRecoveryCode(ctx context.Context, userID int64, codeHash string, expiresAt time.Time) error {
	const op = "storage.postgres.SetRecoveryCode"

	query := `
		UPDATE users
		SET recovery_code_hash = $1, recovery_code_expires_at = $2
		WHERE id = $3;
	`

	tag, err := r.pool.Exec(ctx, query, codeHash, expiresAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// ConsumeRecoveryCode clears both recovery columns, but only while the
// stored hash still matches the one the caller verified. The condition
// makes consumption single-use under races: the second of two concurrent
// consumers sees zero rows affected.
func (r *PostgresRepo) ConsumeRecoveryCode(ctx context.Context, userID int64, codeHash string) (bool, error) {
	const op = "storage.postgres.ConsumeRecoveryCode"

	query := `
		UPDATE users
		SET recovery_code_hash = NULL, recovery_code_expires_at = NULL
		WHERE id = $1 AND recovery_code_hash = $2;
	`

	tag, err := r.pool.Exec(ctx, query, userID, codeHash)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, email string, passHash []byte) error {
	const op = "storage.postgres.UpdatePassword"

	query := `UPDATE users SET password_hash = $1 WHERE email = $2;`

	tag, err := r.pool.Exec(ctx, query, string(passHash), email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
