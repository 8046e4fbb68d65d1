package dbmigrate

import (
	"fmt"

	"github.com/fdg312/incident-hub/internal/config"
)

const DefaultMigrationsDir = "migrations"

// Selection describes which configured URL migrations will run against.
type Selection struct {
	URL     string
	Source  string // env var name the URL came from
	Warning string
}

// SelectDatabaseURL выбирает URL базы для миграций.
// Приоритет: DIRECT > DATABASE_URL > POOLED (с предупреждением).
// При requireDirect принимается только DATABASE_URL_DIRECT.
// SQLite не мигрируется: схема создаётся при открытии хранилища.
func SelectDatabaseURL(cfg *config.Config, requireDirect bool) (Selection, error) {
	if requireDirect {
		if cfg.DatabaseURLDirect == "" {
			return Selection{}, fmt.Errorf("DATABASE_URL_DIRECT is required for DDL/migrations")
		}
		return Selection{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, nil
	}

	switch {
	case cfg.DatabaseURLDirect != "":
		return Selection{URL: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, nil
	case cfg.DatabaseURLRaw != "":
		return Selection{URL: cfg.DatabaseURLRaw, Source: "DATABASE_URL"}, nil
	case cfg.DatabaseURLPooled != "":
		return Selection{
			URL:     cfg.DatabaseURLPooled,
			Source:  "DATABASE_URL_POOLED",
			Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT",
		}, nil
	}

	if cfg.SQLitePath != "" {
		return Selection{}, fmt.Errorf("SQLITE_PATH=%s needs no migrations; set DATABASE_URL_DIRECT or DATABASE_URL for Postgres", cfg.SQLitePath)
	}
	return Selection{}, fmt.Errorf("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
}
