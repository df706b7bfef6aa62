package refund

import (
	"context"
	"errors"

	"loanledger-backend/internal/domain/actor"
	"loanledger-backend/internal/domain/gateway"
	loanDomain "loanledger-backend/internal/domain/loan"
	txnDomain "loanledger-backend/internal/domain/transaction"
	"loanledger-backend/internal/domain/uow"
	"loanledger-backend/internal/usecase/ledger"
	"loanledger-backend/pkg/apperrors"
	"loanledger-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Usecase creates compensating ledger entries for completed payments.
// Cumulative refunds against one payment never exceed its amount.
type Usecase struct {
	txns txnDomain.Repository
	uow  uow.UnitOfWork
	gw   gateway.Client
}

func NewUsecase(txns txnDomain.Repository, tx uow.UnitOfWork, gw gateway.Client) *Usecase {
	return &Usecase{txns: txns, uow: tx, gw: gw}
}

type Input struct {
	TransactionID string
	// Amount defaults to the payment's remaining refundable amount.
	Amount *decimal.Decimal
	Reason string
}

func (u *Usecase) Refund(ctx context.Context, act actor.Actor, in Input) (*txnDomain.Transaction, error) {
	if !act.IsAdmin() {
		return nil, apperrors.AccessDenied("only administrators may issue refunds")
	}

	orig, err := u.txns.GetByTransactionID(ctx, in.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction", in.TransactionID)
		}
		return nil, apperrors.Storage(err)
	}
	if orig.Kind != txnDomain.KindPayment {
		return nil, apperrors.BusinessRule("only payments can be refunded")
	}
	if orig.Status == txnDomain.StatusRefunded {
		return nil, apperrors.BusinessRule("payment is already fully refunded")
	}
	if orig.Status != txnDomain.StatusCompleted {
		return nil, apperrors.BusinessRule("only completed payments can be refunded")
	}

	amount := orig.Refundable()
	if in.Amount != nil {
		amount = in.Amount.Round(2)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ValidationField("amount", "must be greater than zero")
	}
	if amount.GreaterThan(orig.Refundable()) {
		return nil, apperrors.BusinessRule("refund amount exceeds refundable amount")
	}

	reason := in.Reason
	if reason == "" {
		reason = "Refund request"
	}
	refundID := id.NewRefundID()

	// Gateway-settled payments are refunded with the gateway first; the
	// ledger entry posts only after the gateway confirms. The in-transaction
	// re-check below still guards the cap if two refunds race past here.
	if orig.GatewayConfirmed() {
		err := u.gw.InitiateRefund(ctx, gateway.RefundInput{
			OrderID:  orig.ExternalOrderID,
			RefundID: refundID,
			Amount:   amount,
			Reason:   reason,
		})
		if err != nil {
			return nil, apperrors.Gateway("gateway refused the refund", err)
		}
	}

	var out *txnDomain.Transaction
	err = u.uow.WithinLoanTx(ctx, orig.LoanPublicID, func(r uow.Repos, l *loanDomain.Loan) error {
		locked, err := r.Transactions.GetByTransactionIDForUpdate(ctx, in.TransactionID)
		if err != nil {
			return apperrors.Storage(err)
		}
		if amount.GreaterThan(locked.Refundable()) {
			return apperrors.BusinessRule("refund amount exceeds refundable amount")
		}

		t, err := ledger.Apply(ctx, r, l, ledger.ApplyInput{
			Kind:        txnDomain.KindRefund,
			Amount:      amount,
			Method:      locked.Method,
			UserID:      locked.UserID,
			Description: "Refund " + refundID + ": " + reason,
			RefundOfID:  locked.ID,
		})
		if err != nil {
			return err
		}

		locked.RefundedAmount = locked.RefundedAmount.Add(amount)
		if locked.RefundedAmount.Equal(locked.Amount) {
			locked.Status = txnDomain.StatusRefunded
		}
		if err := r.Transactions.Save(ctx, locked); err != nil {
			return apperrors.Storage(err)
		}
		out = t
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", orig.LoanPublicID)
		}
		return nil, err
	}
	return out, nil
}
