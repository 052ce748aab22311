package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver for migrations
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate runs goose against the embedded migrations. Supported commands are
// "up", "down" and "status".
func Migrate(ctx context.Context, dsn, command string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("platform/db: goose dialect: %w", err)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open migration db: %w", err)
	}
	defer conn.Close()

	switch command {
	case "", "up":
		err = goose.UpContext(ctx, conn, "migrations")
	case "down":
		err = goose.DownContext(ctx, conn, "migrations")
	case "status":
		err = goose.StatusContext(ctx, conn, "migrations")
	default:
		return fmt.Errorf("platform/db: unknown migrate command %q", command)
	}
	if err != nil {
		return fmt.Errorf("platform/db: goose %s: %w", command, err)
	}
	return nil
}
