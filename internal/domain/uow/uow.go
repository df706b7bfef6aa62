package uow

import (
	"context"

	"loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/domain/payment"
	"loanledger-backend/internal/domain/transaction"
)

type Repos struct {
	Loans        loan.Repository
	Transactions transaction.Repository
	Intents      payment.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan row first, then pass it in; this is the
	// per-loan serialization point for every balance mutation
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
