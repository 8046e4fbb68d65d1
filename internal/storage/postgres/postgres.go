package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/incident-hub/internal/storage"
)

// PostgresStorage: Postgres реализация Storage.
// Схема создаётся миграциями goose (каталог migrations/).
type PostgresStorage struct {
	pool     *pgxpool.Pool
	reports  *PostgresReportsStorage
	accounts *PostgresAccountsStorage
}

// New подключается к базе и проверяет соединение
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{
		pool:     pool,
		reports:  NewPostgresReportsStorage(pool),
		accounts: NewPostgresAccountsStorage(pool),
	}, nil
}

func (p *PostgresStorage) GetReportsStorage() storage.ReportsStorage {
	return p.reports
}

func (p *PostgresStorage) GetAccountsStorage() storage.AccountsStorage {
	return p.accounts
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
