package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
)

// SQLiteStorage: встроенная реализация Storage на modernc sqlite.
// Схема создаётся при открытии.
type SQLiteStorage struct {
	db *sql.DB
}

func New(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteStorage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			photos TEXT NOT NULL,
			location TEXT,
			submitted_at INTEGER NOT NULL,
			status TEXT NOT NULL,
			receipt_object_key TEXT,
			receipt_size_bytes INTEGER,
			receipt_created_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_reports_owner_submitted ON reports(owner_user_id, submitted_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) GetReportsStorage() storage.ReportsStorage {
	return (*reportsStore)(s)
}

func (s *SQLiteStorage) GetAccountsStorage() storage.AccountsStorage {
	return (*accountsStore)(s)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type reportsStore SQLiteStorage

func (s *reportsStore) CreateReport(ctx context.Context, report *storage.StoredReport) error {
	rec := report.Record
	photos, location, err := storage.EncodeRecordJSON(rec)
	if err != nil {
		return err
	}

	var loc any
	if location != nil {
		loc = string(location)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, owner_user_id, title, description, photos, location, submitted_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, report.OwnerUserID, rec.Title, rec.Description, string(photos), loc,
		rec.SubmittedAt.UnixNano(), string(rec.Status),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("report %s: %w", rec.ID, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

const reportColumns = `id, owner_user_id, title, description, photos, location, submitted_at, status,
	receipt_object_key, receipt_size_bytes, receipt_created_at`

func (s *reportsStore) GetReport(ctx context.Context, id string) (*storage.StoredReport, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return r, nil
}

func (s *reportsStore) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.StoredReport, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE owner_user_id = ?
		ORDER BY submitted_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		ownerUserID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []storage.StoredReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

func (s *reportsStore) SetReceipt(ctx context.Context, id string, receipt storage.Receipt) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports
		SET receipt_object_key = ?, receipt_size_bytes = ?, receipt_created_at = ?
		WHERE id = ?`,
		receipt.ObjectKey, receipt.SizeBytes, receipt.CreatedAt.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set receipt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("report %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*storage.StoredReport, error) {
	var (
		r           storage.StoredReport
		photos      string
		location    sql.NullString
		submittedAt int64
		status      string
		receiptKey  sql.NullString
		receiptSize sql.NullInt64
		receiptAt   sql.NullInt64
	)

	err := row.Scan(
		&r.Record.ID,
		&r.OwnerUserID,
		&r.Record.Title,
		&r.Record.Description,
		&photos,
		&location,
		&submittedAt,
		&status,
		&receiptKey,
		&receiptSize,
		&receiptAt,
	)
	if err != nil {
		return nil, err
	}

	r.Record.SubmittedAt = time.Unix(0, submittedAt).UTC()
	r.Record.Status = reportdraft.Status(status)

	var locBytes []byte
	if location.Valid {
		locBytes = []byte(location.String)
	}
	if err := storage.DecodeRecordJSON(&r.Record, []byte(photos), locBytes); err != nil {
		return nil, err
	}

	if receiptKey.Valid {
		r.Receipt = &storage.Receipt{
			ObjectKey: receiptKey.String,
			SizeBytes: receiptSize.Int64,
			CreatedAt: time.Unix(0, receiptAt.Int64).UTC(),
		}
	}
	return &r, nil
}

type accountsStore SQLiteStorage

func (s *accountsStore) CreateAccount(ctx context.Context, account *storage.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, first_name, last_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID.String(), account.Email, account.FirstName, account.LastName,
		account.PasswordHash, account.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("account %s: %w", account.Email, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *accountsStore) GetAccountByEmail(ctx context.Context, email string) (*storage.Account, error) {
	return s.getOne(ctx, `WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (s *accountsStore) GetAccountByID(ctx context.Context, id uuid.UUID) (*storage.Account, error) {
	return s.getOne(ctx, `WHERE id = ?`, id.String())
}

func (s *accountsStore) getOne(ctx context.Context, where string, arg any) (*storage.Account, error) {
	var (
		a         storage.Account
		id        string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, password_hash, created_at FROM accounts `+where, arg,
	).Scan(&id, &a.Email, &a.FirstName, &a.LastName, &a.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %v: %w", arg, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt account id %q: %w", id, err)
	}
	a.ID = parsed
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	return &a, nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}
