package memory

import (
	"github.com/fdg312/incident-hub/internal/storage"
)

// MemoryStorage: in-memory реализация Storage
type MemoryStorage struct {
	reports  *ReportsMemoryStorage
	accounts *AccountsMemoryStorage
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	return &MemoryStorage{
		reports:  NewReportsMemoryStorage(),
		accounts: NewAccountsMemoryStorage(),
	}
}

func (m *MemoryStorage) GetReportsStorage() storage.ReportsStorage {
	return m.reports
}

func (m *MemoryStorage) GetAccountsStorage() storage.AccountsStorage {
	return m.accounts
}

func (m *MemoryStorage) Close() error {
	return nil
}
