package ledger

import (
	"context"
	"errors"
	"time"

	"loanledger-backend/internal/domain/actor"
	loanDomain "loanledger-backend/internal/domain/loan"
	txnDomain "loanledger-backend/internal/domain/transaction"
	"loanledger-backend/internal/domain/uow"
	"loanledger-backend/pkg/apperrors"
	"loanledger-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Usecase is the transaction ledger: the only entry point that mutates a
// loan's remaining balance. Manual entries, gateway reconciliation and
// refunds all funnel through Apply under the same per-loan row lock.
type Usecase struct {
	txns txnDomain.Repository
	uow  uow.UnitOfWork
}

func NewUsecase(txns txnDomain.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{txns: txns, uow: tx}
}

// ApplyInput describes one balance-affecting entry.
type ApplyInput struct {
	Kind              txnDomain.Kind
	Amount            decimal.Decimal
	Method            txnDomain.Method
	UserID            string
	Description       string
	ExternalPaymentID string
	ExternalOrderID   string
	RefundOfID        uint64
	TransactionDate   time.Time
}

// Apply creates a completed transaction and adjusts the loan balance inside
// the caller's already-locked loan transaction. Payment decrements the
// balance; refund and disbursement restore it. Balance-driven status
// transitions (approved→active, active→completed, reopen on restore) happen
// here and nowhere else.
func Apply(ctx context.Context, r uow.Repos, l *loanDomain.Loan, in ApplyInput) (*txnDomain.Transaction, error) {
	if !txnDomain.ValidKind(in.Kind) {
		return nil, apperrors.ValidationField("kind", "must be payment, disbursement or refund")
	}
	if !txnDomain.ValidMethod(in.Method) {
		return nil, apperrors.ValidationField("method", "unknown settlement method")
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ValidationField("amount", "must be greater than zero")
	}

	switch in.Kind {
	case txnDomain.KindPayment, txnDomain.KindDisbursement:
		if !l.Open() {
			return nil, apperrors.BusinessRule("loan " + l.LoanID + " is not open for transactions")
		}
	case txnDomain.KindRefund:
		// refunds may also land on a loan that auto-completed
		if !l.Open() && l.Status != loanDomain.StatusCompleted {
			return nil, apperrors.BusinessRule("loan " + l.LoanID + " cannot accept a refund")
		}
	}

	if in.Kind == txnDomain.KindPayment && in.Amount.GreaterThan(l.RemainingBalance) {
		return nil, apperrors.BusinessRule("payment amount exceeds remaining loan balance")
	}

	when := in.TransactionDate
	if when.IsZero() {
		when = time.Now().UTC()
	}
	userID := in.UserID
	if userID == "" {
		userID = l.UserID
	}

	t := &txnDomain.Transaction{
		TransactionID:     id.NewID32(),
		Reference:         id.NewTransactionRef(),
		LoanID:            l.ID,
		LoanPublicID:      l.LoanID,
		UserID:            userID,
		Amount:            in.Amount.Round(2),
		Kind:              in.Kind,
		Method:            in.Method,
		Status:            txnDomain.StatusCompleted,
		ExternalPaymentID: in.ExternalPaymentID,
		ExternalOrderID:   in.ExternalOrderID,
		RefundOfID:        in.RefundOfID,
		RefundedAmount:    decimal.Zero,
		Description:       in.Description,
		TransactionDate:   when,
	}
	if err := r.Transactions.Create(ctx, t); err != nil {
		return nil, apperrors.Storage(err)
	}

	switch in.Kind {
	case txnDomain.KindPayment:
		l.RemainingBalance = l.RemainingBalance.Sub(t.Amount)
	case txnDomain.KindRefund, txnDomain.KindDisbursement:
		l.RemainingBalance = l.RemainingBalance.Add(t.Amount)
	}

	now := time.Now().UTC()
	switch {
	case l.RemainingBalance.IsZero() && l.Status != loanDomain.StatusCompleted:
		l.Status = loanDomain.StatusCompleted
		l.StatusUpdatedAt = now
	case l.RemainingBalance.GreaterThan(decimal.Zero) && l.Status == loanDomain.StatusCompleted:
		// restore reopened the repayment
		l.Status = loanDomain.StatusActive
		l.StatusUpdatedAt = now
	case in.Kind == txnDomain.KindPayment && l.Status == loanDomain.StatusApproved:
		l.Status = loanDomain.StatusActive
		l.StatusUpdatedAt = now
	}

	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, apperrors.Storage(err)
	}
	return t, nil
}

type PostInput struct {
	LoanID          string
	Kind            txnDomain.Kind
	Amount          decimal.Decimal
	Method          txnDomain.Method
	UserID          string
	Description     string
	TransactionDate time.Time
}

// Post records a manual (admin or owner initiated) ledger entry.
func (u *Usecase) Post(ctx context.Context, act actor.Actor, in PostInput) (*txnDomain.Transaction, error) {
	var out *txnDomain.Transaction
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loanDomain.Loan) error {
		if !act.CanAccess(l.UserID) {
			return apperrors.AccessDenied("access denied to this loan")
		}
		userID := l.UserID
		if act.IsAdmin() && in.UserID != "" {
			userID = in.UserID
		}
		t, err := Apply(ctx, r, l, ApplyInput{
			Kind:            in.Kind,
			Amount:          in.Amount,
			Method:          in.Method,
			UserID:          userID,
			Description:     in.Description,
			TransactionDate: in.TransactionDate,
		})
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", in.LoanID)
		}
		return nil, err
	}
	return out, nil
}

// Reverse undoes a manual ledger entry: the balance effect is rolled back
// and the row is marked cancelled so financial history survives. Entries
// confirmed by the gateway can only be refunded, never reversed.
func (u *Usecase) Reverse(ctx context.Context, act actor.Actor, transactionID string) (*txnDomain.Transaction, error) {
	if !act.IsAdmin() {
		return nil, apperrors.AccessDenied("only administrators may reverse transactions")
	}

	t, err := u.txns.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction", transactionID)
		}
		return nil, apperrors.Storage(err)
	}

	var out *txnDomain.Transaction
	err = u.uow.WithinLoanTx(ctx, t.LoanPublicID, func(r uow.Repos, l *loanDomain.Loan) error {
		t, err := r.Transactions.GetByTransactionIDForUpdate(ctx, transactionID)
		if err != nil {
			return apperrors.Storage(err)
		}
		if t.GatewayConfirmed() {
			return apperrors.BusinessRule("cannot reverse a gateway-confirmed transaction")
		}
		if t.Status != txnDomain.StatusCompleted {
			return apperrors.BusinessRule("only completed transactions can be reversed")
		}

		switch t.Kind {
		case txnDomain.KindPayment:
			l.RemainingBalance = l.RemainingBalance.Add(t.Amount)
		case txnDomain.KindRefund, txnDomain.KindDisbursement:
			next := l.RemainingBalance.Sub(t.Amount)
			if next.LessThan(decimal.Zero) {
				return apperrors.BusinessRule("reversal would drive the loan balance negative")
			}
			l.RemainingBalance = next
		}

		now := time.Now().UTC()
		switch {
		case l.Status == loanDomain.StatusCompleted && l.RemainingBalance.GreaterThan(decimal.Zero):
			l.Status = loanDomain.StatusActive
			l.StatusUpdatedAt = now
		case l.Status == loanDomain.StatusActive && l.RemainingBalance.IsZero():
			l.Status = loanDomain.StatusCompleted
			l.StatusUpdatedAt = now
		}

		// a reversed refund frees up the original payment's refundable amount
		if t.Kind == txnDomain.KindRefund && t.RefundOfID != 0 {
			if err := releaseRefund(ctx, r, t); err != nil {
				return err
			}
		}

		t.Status = txnDomain.StatusCancelled
		if err := r.Transactions.Save(ctx, t); err != nil {
			return apperrors.Storage(err)
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return apperrors.Storage(err)
		}
		out = t
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", t.LoanPublicID)
		}
		return nil, err
	}
	return out, nil
}

func releaseRefund(ctx context.Context, r uow.Repos, refund *txnDomain.Transaction) error {
	orig, err := r.Transactions.GetByIDForUpdate(ctx, refund.RefundOfID)
	if err != nil {
		return apperrors.Storage(err)
	}
	orig.RefundedAmount = orig.RefundedAmount.Sub(refund.Amount)
	if orig.RefundedAmount.LessThan(decimal.Zero) {
		orig.RefundedAmount = decimal.Zero
	}
	if orig.Status == txnDomain.StatusRefunded {
		orig.Status = txnDomain.StatusCompleted
	}
	return r.Transactions.Save(ctx, orig)
}

type UpdateMetaInput struct {
	Description *string
	Method      *txnDomain.Method
}

// UpdateMeta edits administrative metadata only; the financial effect of a
// posted transaction is immutable.
func (u *Usecase) UpdateMeta(ctx context.Context, act actor.Actor, transactionID string, in UpdateMetaInput) (*txnDomain.Transaction, error) {
	if !act.IsAdmin() {
		return nil, apperrors.AccessDenied("only administrators may edit transactions")
	}
	t, err := u.txns.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction", transactionID)
		}
		return nil, apperrors.Storage(err)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Method != nil {
		if !txnDomain.ValidMethod(*in.Method) {
			return nil, apperrors.ValidationField("method", "unknown settlement method")
		}
		t.Method = *in.Method
	}
	if err := u.txns.Save(ctx, t); err != nil {
		return nil, apperrors.Storage(err)
	}
	return t, nil
}

func (u *Usecase) Get(ctx context.Context, act actor.Actor, transactionID string) (*txnDomain.Transaction, error) {
	t, err := u.txns.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction", transactionID)
		}
		return nil, apperrors.Storage(err)
	}
	if !act.CanAccess(t.UserID) {
		return nil, apperrors.AccessDenied("access denied to this transaction")
	}
	return t, nil
}
