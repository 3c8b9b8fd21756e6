package credits

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const refundTimeout = 5 * time.Second

// PaidOperation is work that costs credits. It receives the charged subject.
type PaidOperation[T any] func(ctx context.Context, subject string) (T, error)

// Gate guards paid operations: check the balance, debit, run. Callers
// authenticate first (see middleware.RequireBearer) and enter through Charge.
type Gate struct {
	store  Store
	cost   int64
	refund bool
}

// NewGate creates a gate charging cfg.Cost per call.
func NewGate(store Store, cfg GateConfig) *Gate {
	cost := cfg.Cost
	if cost <= 0 {
		cost = 1
	}
	return &Gate{store: store, cost: cost, refund: cfg.RefundOnFailure}
}

// Cost is the number of credits one call consumes.
func (g *Gate) Cost() int64 { return g.cost }

// Charge debits an already authenticated subject and runs op.
//
// The balance is read first so a missing account or an empty balance is
// reported without any write. The debit itself is conditional, so of several
// concurrent calls racing for the last credit at most one gets through; the
// others fail with ErrInsufficientBalance and the balance never goes negative.
//
// If op fails after the debit, the credit is given back when the gate was
// configured with RefundOnFailure. Otherwise it stays spent.
func Charge[T any](ctx context.Context, g *Gate, subject string, op PaidOperation[T]) (T, error) {
	var zero T

	account, err := g.store.Get(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			log.Warnf("[Credits] no account for subject %s", subject)
		}
		return zero, err
	}
	if account.Credits < g.cost {
		log.Infof("[Credits] insufficient credits for subject %s: have %d, need %d", subject, account.Credits, g.cost)
		return zero, ErrInsufficientBalance
	}

	remaining, err := g.store.DecrementIfSufficient(ctx, subject, g.cost)
	if err != nil {
		return zero, err
	}
	log.Infof("[Credits] charged subject %s %d credit(s), %d remaining", subject, g.cost, remaining)

	result, opErr := op(ctx, subject)
	if opErr == nil {
		return result, nil
	}

	if g.refund {
		g.refundCharge(ctx, subject)
	} else {
		log.Warnf("[Credits] paid operation failed for subject %s, charge kept: %v", subject, opErr)
	}
	return zero, opErr
}

func (g *Gate) refundCharge(ctx context.Context, subject string) {
	// The refund must still land if the request context was cancelled.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	balance, err := g.store.IncrementIfExists(rctx, subject, g.cost, "")
	if err != nil {
		log.Errorf("[Credits] refund of %d credit(s) for subject %s failed: %v", g.cost, subject, err)
		return
	}
	log.Infof("[Credits] refunded subject %s %d credit(s) after failed operation, balance %d", subject, g.cost, balance)
}
