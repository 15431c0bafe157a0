package storage

import (
	"context"
	"sync"
)

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps account snapshots in process memory. It is the default
// backend and the one used throughout the tests.
type MemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]*AccountSnapshot
	signedInUID   string
	formatVersion int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*AccountSnapshot),
	}
}

func (s *MemoryStore) GetAccount(_ context.Context, uid string) (*AccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[uid]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStore) SetAccount(_ context.Context, account *AccountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *account
	s.accounts[account.UID] = &copied
	return nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, uid)
	if s.signedInUID == uid {
		s.signedInUID = ""
	}
	return nil
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]*AccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*AccountSnapshot, 0, len(s.accounts))
	for _, account := range s.accounts {
		copied := *account
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

func (s *MemoryStore) SignedInUID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.signedInUID == "" {
		return "", ErrNotSignedIn
	}
	return s.signedInUID, nil
}

func (s *MemoryStore) SetSignedInUID(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[uid]; !ok {
		return ErrAccountNotFound
	}
	s.signedInUID = uid
	return nil
}

func (s *MemoryStore) ClearSignedInUID(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signedInUID = ""
	return nil
}

func (s *MemoryStore) FormatVersion(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.formatVersion, nil
}

func (s *MemoryStore) SetFormatVersion(_ context.Context, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formatVersion = version
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
