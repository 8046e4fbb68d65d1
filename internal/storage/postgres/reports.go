package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/incident-hub/internal/reportdraft"
	"github.com/fdg312/incident-hub/internal/storage"
)

// PostgresReportsStorage: Postgres storage для отчётов
type PostgresReportsStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresReportsStorage создаёт новое Postgres хранилище
func NewPostgresReportsStorage(pool *pgxpool.Pool) *PostgresReportsStorage {
	return &PostgresReportsStorage{pool: pool}
}

const reportColumns = `id, owner_user_id, title, description, photos, location, submitted_at, status,
	receipt_object_key, receipt_size_bytes, receipt_created_at`

// CreateReport сохраняет отчёт
func (s *PostgresReportsStorage) CreateReport(ctx context.Context, report *storage.StoredReport) error {
	query := `
		INSERT INTO reports (id, owner_user_id, title, description, photos, location, submitted_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	rec := report.Record
	photos, location, err := storage.EncodeRecordJSON(rec)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, query,
		rec.ID,
		report.OwnerUserID,
		rec.Title,
		rec.Description,
		photos,
		location,
		rec.SubmittedAt,
		string(rec.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("report %s: %w", rec.ID, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// GetReport возвращает отчёт по ID
func (s *PostgresReportsStorage) GetReport(ctx context.Context, id string) (*storage.StoredReport, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return report, nil
}

// ListReports возвращает список отчётов с пагинацией
func (s *PostgresReportsStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.StoredReport, error) {
	query := `SELECT ` + reportColumns + `
		FROM reports
		WHERE owner_user_id = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, ownerUserID, limit, offset)
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

// SetReceipt прикрепляет квитанцию
func (s *PostgresReportsStorage) SetReceipt(ctx context.Context, id string, receipt storage.Receipt) error {
	query := `
		UPDATE reports
		SET receipt_object_key = $2, receipt_size_bytes = $3, receipt_created_at = $4
		WHERE id = $1
	`

	result, err := s.pool.Exec(ctx, query, id, receipt.ObjectKey, receipt.SizeBytes, receipt.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to set receipt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("report %s: %w", id, storage.ErrNotFound)
	}

	return nil
}

func scanReport(row pgx.Row) (*storage.StoredReport, error) {
	var (
		r          storage.StoredReport
		status     string
		photos     []byte
		location   []byte
		receiptKey *string
		receiptSz  *int64
		receiptAt  *time.Time
	)

	err := row.Scan(
		&r.Record.ID,
		&r.OwnerUserID,
		&r.Record.Title,
		&r.Record.Description,
		&photos,
		&location,
		&r.Record.SubmittedAt,
		&status,
		&receiptKey,
		&receiptSz,
		&receiptAt,
	)
	if err != nil {
		return nil, err
	}

	r.Record.Status = reportdraft.Status(status)
	if err := storage.DecodeRecordJSON(&r.Record, photos, location); err != nil {
		return nil, err
	}

	if receiptKey != nil {
		rc := storage.Receipt{ObjectKey: *receiptKey}
		if receiptSz != nil {
			rc.SizeBytes = *receiptSz
		}
		if receiptAt != nil {
			rc.CreatedAt = *receiptAt
		}
		r.Receipt = &rc
	}

	return &r, nil
}
