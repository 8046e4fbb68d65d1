package dbmigrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Commands lists the goose commands exposed by cmd/migrate.
var Commands = []string{"up", "status", "down", "version"}

// ValidateCommand rejects anything outside Commands.
func ValidateCommand(command string) error {
	for _, c := range Commands {
		if c == command {
			return nil
		}
	}
	return fmt.Errorf("unsupported command %q (allowed: up, status, down, version)", command)
}

// Run применяет goose-команду к Postgres базе.
// Схема reports/accounts лежит в migrations/.
func Run(ctx context.Context, command string, dbURL string, migrationsDir string) error {
	if err := ValidateCommand(command); err != nil {
		return err
	}
	if dbURL == "" {
		return fmt.Errorf("database URL is empty")
	}
	if migrationsDir == "" {
		migrationsDir = DefaultMigrationsDir
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, migrationsDir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}

	return nil
}
