package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/config"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/security"
)

// EnsureSeedUser creates the bootstrap account named in config, if any.
// Idempotent: an existing account with that email is left alone.
func EnsureSeedUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedEmail == "" || cfg.SeedPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.SeedEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.SeedPassword)

	if err != nil {
		return err
	}

	u := user.New(cfg.SeedEmail, hash)

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, is_active, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
