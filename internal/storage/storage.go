package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/incident-hub/internal/reportdraft"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Storage: общий интерфейс бэкендов (memory, postgres, sqlite)
type Storage interface {
	GetReportsStorage() ReportsStorage
	GetAccountsStorage() AccountsStorage

	// Close закрывает соединение (для Postgres / SQLite)
	Close() error
}

// ReportsStorage: интерфейс для работы с отправленными отчётами
type ReportsStorage interface {
	// CreateReport сохраняет отчёт; повторный ID → ErrAlreadyExists
	CreateReport(ctx context.Context, report *StoredReport) error

	// GetReport возвращает отчёт по ID или ErrNotFound
	GetReport(ctx context.Context, id string) (*StoredReport, error)

	// ListReports возвращает отчёты владельца, новые первыми
	ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]StoredReport, error)

	// SetReceipt прикрепляет PDF-квитанцию к отчёту
	SetReceipt(ctx context.Context, id string, receipt Receipt) error
}

// StoredReport: отправленный отчёт и его владелец
type StoredReport struct {
	Record      reportdraft.Record
	OwnerUserID string
	Receipt     *Receipt
}

// Receipt: метаданные квитанции
type Receipt struct {
	ObjectKey string
	SizeBytes int64
	CreatedAt time.Time
}

// AccountsStorage: интерфейс для работы с учётными записями
type AccountsStorage interface {
	// CreateAccount создаёт учётную запись; email уже занят → ErrAlreadyExists
	CreateAccount(ctx context.Context, account *Account) error

	// GetAccountByEmail ищет без учёта регистра
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)

	GetAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// Account: учётная запись пользователя
type Account struct {
	ID           uuid.UUID
	Email        string // normalized: trimmed, lower-case
	FirstName    string
	LastName     string
	PasswordHash string
	CreatedAt    time.Time
}

// Paginate applies limit/offset to an already sorted slice.
func Paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
