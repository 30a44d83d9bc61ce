package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taskhub/taskhub/internal/domain/user"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, is_active, is_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return r.getOne(ctx,
		`SELECT id, email, password_hash, is_active, is_verified, created_at, updated_at
		 FROM users
		 WHERE email = $1`,
		email,
	)
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	return r.getOne(ctx,
		`SELECT id, email, password_hash, is_active, is_verified, created_at, updated_at
		 FROM users
		 WHERE id = $1`,
		id,
	)
}

// Exists is the assignee check used by task writes that change assigned_to.
func (r *UsersRepo) Exists(ctx context.Context, id string) (bool, error) {
	var dummy string

	err := r.pool.QueryRow(ctx, `SELECT id FROM users WHERE id = $1`, id).Scan(&dummy)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (r *UsersRepo) getOne(ctx context.Context, query string, arg any) (user.User, error) {
	var u user.User

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}
