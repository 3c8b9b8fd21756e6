package credits

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrInsufficientBalance = errors.New("insufficient credits")
	ErrAlreadyFulfilled    = errors.New("fulfillment already applied")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidSubject      = errors.New("subject is required")
)

// Account is the balance record for one subject.
type Account struct {
	Subject string
	Email   string
	Credits int64
}

// Store is a durable per-subject credit balance.
//
// Every mutation is a single atomic operation of the backing store. Callers
// that need "only if enough credits" must use DecrementIfSufficient: Decrement
// does not enforce a lower bound.
type Store interface {
	// Get returns the account or ErrAccountNotFound.
	Get(ctx context.Context, subject string) (Account, error)
	// Create stores a new account, failing with ErrAccountExists if the subject has one.
	Create(ctx context.Context, account Account) error
	// Decrement subtracts amount unconditionally. The balance may go negative.
	Decrement(ctx context.Context, subject string, amount int64) error
	// DecrementIfSufficient subtracts amount only if the balance covers it and
	// returns the new balance. ErrAccountNotFound or ErrInsufficientBalance otherwise.
	DecrementIfSufficient(ctx context.Context, subject string, amount int64) (int64, error)
	// IncrementIfExists adds amount to an existing account and returns the new
	// balance. A non-empty fulfillmentID is recorded in the same write and a
	// second call with the same id fails with ErrAlreadyFulfilled.
	IncrementIfExists(ctx context.Context, subject string, amount int64, fulfillmentID string) (int64, error)
}

func checkArgs(subject string, amount int64) error {
	if strings.TrimSpace(subject) == "" {
		return ErrInvalidSubject
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
