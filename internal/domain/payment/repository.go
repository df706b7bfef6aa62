package payment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, i *Intent) error
	GetByOrderID(ctx context.Context, orderID string) (*Intent, error)
	// GetByOrderIDForUpdate locks the intent row so the terminal-status
	// check and the ledger post commit as one atomic step.
	GetByOrderIDForUpdate(ctx context.Context, orderID string) (*Intent, error)
	Save(ctx context.Context, i *Intent) error
	// ListStalePending returns pending intents created before cutoff, for
	// the reconciliation sweeper.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*Intent, error)
}
