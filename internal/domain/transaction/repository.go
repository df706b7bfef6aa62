package transaction

import "context"

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	// GetByTransactionIDForUpdate locks the row; used when bumping
	// RefundedAmount inside a refund transaction.
	GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*Transaction, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Transaction, error)
	Save(ctx context.Context, t *Transaction) error
	CountByLoan(ctx context.Context, loanID uint64) (int64, error)
}
