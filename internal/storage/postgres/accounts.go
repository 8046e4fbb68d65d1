package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/incident-hub/internal/storage"
)

// PostgresAccountsStorage: Postgres storage для учётных записей
type PostgresAccountsStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountsStorage(pool *pgxpool.Pool) *PostgresAccountsStorage {
	return &PostgresAccountsStorage{pool: pool}
}

func (s *PostgresAccountsStorage) CreateAccount(ctx context.Context, account *storage.Account) error {
	query := `
		INSERT INTO accounts (id, email, first_name, last_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	err := s.pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.FirstName,
		account.LastName,
		account.PasswordHash,
	).Scan(&account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("account %s: %w", account.Email, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func (s *PostgresAccountsStorage) GetAccountByEmail(ctx context.Context, email string) (*storage.Account, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, created_at
		FROM accounts
		WHERE email = $1
	`
	return s.getOne(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (s *PostgresAccountsStorage) GetAccountByID(ctx context.Context, id uuid.UUID) (*storage.Account, error) {
	query := `
		SELECT id, email, first_name, last_name, password_hash, created_at
		FROM accounts
		WHERE id = $1
	`
	return s.getOne(ctx, query, id)
}

func (s *PostgresAccountsStorage) getOne(ctx context.Context, query string, arg any) (*storage.Account, error) {
	var a storage.Account
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.PasswordHash,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %v: %w", arg, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}
