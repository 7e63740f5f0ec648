package accounts

import (
	"context"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory account directory for tests and local development.
type MemoryRepo struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryRepo(accounts ...Account) *MemoryRepo {
	m := &MemoryRepo{accounts: make(map[string]Account, len(accounts))}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MemoryRepo) Put(a Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *MemoryRepo) FindByVapiPhoneNumber(ctx context.Context, phoneNumberID string) (Account, error) {
	phoneNumberID = strings.TrimSpace(phoneNumberID)
	if phoneNumberID == "" {
		return Account{}, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.VapiPhoneNumber == phoneNumberID {
			return a, nil
		}
	}
	return Account{}, ErrNotFound
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}
