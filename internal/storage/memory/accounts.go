package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/incident-hub/internal/storage"
	"github.com/google/uuid"
)

// AccountsMemoryStorage: in-memory storage для учётных записей
type AccountsMemoryStorage struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]storage.Account
	byEmail map[string]uuid.UUID
}

func NewAccountsMemoryStorage() *AccountsMemoryStorage {
	return &AccountsMemoryStorage{
		byID:    make(map[uuid.UUID]storage.Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *AccountsMemoryStorage) CreateAccount(ctx context.Context, account *storage.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(account.Email)
	if _, exists := s.byEmail[email]; exists {
		return fmt.Errorf("account %s: %w", email, storage.ErrAlreadyExists)
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.Email = email

	s.byID[account.ID] = *account
	s.byEmail[email] = account.ID
	return nil
}

func (s *AccountsMemoryStorage) GetAccountByEmail(ctx context.Context, email string) (*storage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", email, storage.ErrNotFound)
	}
	acc := s.byID[id]
	return &acc, nil
}

func (s *AccountsMemoryStorage) GetAccountByID(ctx context.Context, id uuid.UUID) (*storage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, storage.ErrNotFound)
	}
	return &acc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
