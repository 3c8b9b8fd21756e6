package credits

import (
	"context"
	"strings"
	"sync"
)

type memoryAccount struct {
	account   Account
	fulfilled map[string]struct{}
}

// MemoryStore keeps balances in process memory. It backs local development
// (CREDITS_BACKEND=memory) and tests; state is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*memoryAccount)}
}

func (s *MemoryStore) Get(_ context.Context, subject string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[subject]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a.account, nil
}

func (s *MemoryStore) Create(_ context.Context, account Account) error {
	if strings.TrimSpace(account.Subject) == "" {
		return ErrInvalidSubject
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Subject]; ok {
		return ErrAccountExists
	}
	s.accounts[account.Subject] = &memoryAccount{
		account:   account,
		fulfilled: make(map[string]struct{}),
	}
	return nil
}

func (s *MemoryStore) Decrement(_ context.Context, subject string, amount int64) error {
	if err := checkArgs(subject, amount); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[subject]
	if !ok {
		return ErrAccountNotFound
	}
	a.account.Credits -= amount
	return nil
}

func (s *MemoryStore) DecrementIfSufficient(_ context.Context, subject string, amount int64) (int64, error) {
	if err := checkArgs(subject, amount); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[subject]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if a.account.Credits < amount {
		return a.account.Credits, ErrInsufficientBalance
	}
	a.account.Credits -= amount
	return a.account.Credits, nil
}

func (s *MemoryStore) IncrementIfExists(_ context.Context, subject string, amount int64, fulfillmentID string) (int64, error) {
	if err := checkArgs(subject, amount); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[subject]
	if !ok {
		return 0, ErrAccountNotFound
	}
	if fulfillmentID != "" {
		if _, done := a.fulfilled[fulfillmentID]; done {
			return a.account.Credits, ErrAlreadyFulfilled
		}
		a.fulfilled[fulfillmentID] = struct{}{}
	}
	a.account.Credits += amount
	return a.account.Credits, nil
}
