package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fdg312/incident-hub/internal/storage"
)

// ReportsMemoryStorage: in-memory storage для отчётов
type ReportsMemoryStorage struct {
	mu      sync.RWMutex
	reports map[string]storage.StoredReport
}

// NewReportsMemoryStorage создаёт новое in-memory хранилище
func NewReportsMemoryStorage() *ReportsMemoryStorage {
	return &ReportsMemoryStorage{
		reports: make(map[string]storage.StoredReport),
	}
}

// CreateReport сохраняет отчёт
func (s *ReportsMemoryStorage) CreateReport(ctx context.Context, report *storage.StoredReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.Record.ID]; exists {
		return fmt.Errorf("report %s: %w", report.Record.ID, storage.ErrAlreadyExists)
	}

	s.reports[report.Record.ID] = copyReport(*report)
	return nil
}

// GetReport возвращает отчёт по ID
func (s *ReportsMemoryStorage) GetReport(ctx context.Context, id string) (*storage.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, exists := s.reports[id]
	if !exists {
		return nil, fmt.Errorf("report %s: %w", id, storage.ErrNotFound)
	}

	out := copyReport(report)
	return &out, nil
}

// ListReports возвращает список отчётов с пагинацией
func (s *ReportsMemoryStorage) ListReports(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []storage.StoredReport
	for _, r := range s.reports {
		if r.OwnerUserID == ownerUserID {
			filtered = append(filtered, copyReport(r))
		}
	}

	// submitted_at DESC, id для стабильного порядка
	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i].Record, filtered[j].Record
		if a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.ID > b.ID
		}
		return a.SubmittedAt.After(b.SubmittedAt)
	})

	return storage.Paginate(filtered, limit, offset), nil
}

// SetReceipt прикрепляет квитанцию
func (s *ReportsMemoryStorage) SetReceipt(ctx context.Context, id string, receipt storage.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, exists := s.reports[id]
	if !exists {
		return fmt.Errorf("report %s: %w", id, storage.ErrNotFound)
	}

	report.Receipt = &receipt
	s.reports[id] = report
	return nil
}

func copyReport(r storage.StoredReport) storage.StoredReport {
	out := r
	out.Record = r.Record.Clone()
	if r.Receipt != nil {
		rc := *r.Receipt
		out.Receipt = &rc
	}
	return out
}
