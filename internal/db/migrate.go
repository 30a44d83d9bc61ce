package db

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/taskhub/taskhub/internal/db/migrations"
)

// Migrate applies the embedded schema. goose needs database/sql, so it
// opens its own short-lived connection via the pgx stdlib driver rather
// than sharing the pgxpool.
func Migrate(ctx context.Context, dbURL string) error {
	conn, err := sql.Open("pgx", dbURL)

	if err != nil {
		return err
	}

	defer conn.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Migrations)

	return goose.UpContext(ctx, conn, ".")
}
