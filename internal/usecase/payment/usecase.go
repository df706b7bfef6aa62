package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"loanledger-backend/internal/domain/actor"
	"loanledger-backend/internal/domain/gateway"
	loanDomain "loanledger-backend/internal/domain/loan"
	paymentDomain "loanledger-backend/internal/domain/payment"
	txnDomain "loanledger-backend/internal/domain/transaction"
	"loanledger-backend/internal/domain/uow"
	"loanledger-backend/internal/usecase/ledger"
	"loanledger-backend/pkg/apperrors"
	"loanledger-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Usecase is the payment reconciler. It owns the PaymentIntent lifecycle and
// converts gateway outcomes into at most one ledger transaction per order,
// no matter how many times or in what order the verify call and the webhook
// report that outcome.
type Usecase struct {
	loans   loanDomain.Repository
	intents paymentDomain.Repository
	uow     uow.UnitOfWork
	gw      gateway.Client
}

func NewUsecase(loans loanDomain.Repository, intents paymentDomain.Repository, tx uow.UnitOfWork, gw gateway.Client) *Usecase {
	return &Usecase{loans: loans, intents: intents, uow: tx, gw: gw}
}

type CreateOrderInput struct {
	LoanID      string
	Amount      decimal.Decimal
	Description string
}

// CreateOrder opens a pending intent and asks the gateway for a checkout
// session. The gateway call happens outside any database transaction; a
// gateway failure retires the intent as failed and the caller may retry
// with a fresh order.
func (u *Usecase) CreateOrder(ctx context.Context, act actor.Actor, in CreateOrderInput) (*paymentDomain.Intent, error) {
	l, err := u.loans.GetByLoanID(ctx, in.LoanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", in.LoanID)
		}
		return nil, apperrors.Storage(err)
	}
	if !act.CanAccess(l.UserID) {
		return nil, apperrors.AccessDenied("access denied to this loan")
	}
	if !l.Open() {
		return nil, apperrors.BusinessRule("loan " + l.LoanID + " is not open for payments")
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ValidationField("amount", "must be greater than zero")
	}
	if in.Amount.GreaterThan(l.RemainingBalance) {
		return nil, apperrors.BusinessRule("payment amount exceeds remaining loan balance")
	}

	desc := in.Description
	if desc == "" {
		desc = fmt.Sprintf("Payment for loan %s", l.AccountNumber)
	}
	intent := &paymentDomain.Intent{
		OrderID:      id.NewOrderID(),
		LoanID:       l.ID,
		LoanPublicID: l.LoanID,
		UserID:       l.UserID,
		Amount:       in.Amount.Round(2),
		Currency:     "INR",
		Status:       paymentDomain.StatusPending,
		Description:  desc,
	}
	if err := u.intents.Create(ctx, intent); err != nil {
		return nil, apperrors.Storage(err)
	}

	order, err := u.gw.CreateOrder(ctx, gateway.CreateOrderInput{
		OrderID:     intent.OrderID,
		Amount:      intent.Amount,
		Currency:    intent.Currency,
		Description: intent.Description,
		CustomerID:  intent.UserID,
	})
	if err != nil {
		intent.Status = paymentDomain.StatusFailed
		intent.FailureReason = "gateway order creation failed: " + err.Error()
		if saveErr := u.intents.Save(ctx, intent); saveErr != nil {
			log.Printf("payment: could not retire intent %s after gateway failure: %v", intent.OrderID, saveErr)
		}
		return nil, apperrors.Gateway("failed to create payment order", err)
	}

	intent.GatewayOrderID = order.GatewayOrderID
	intent.SessionRef = order.SessionRef
	if err := u.intents.Save(ctx, intent); err != nil {
		return nil, apperrors.Storage(err)
	}
	return intent, nil
}

type ReconcileInput struct {
	OrderID          string
	Outcome          gateway.Outcome
	Amount           decimal.Decimal
	Method           txnDomain.Method
	GatewayPaymentID string
}

type ReconcileResult struct {
	Applied     bool
	Intent      *paymentDomain.Intent
	Transaction *txnDomain.Transaction
	// Conflict is set when the gateway confirmed a payment the ledger
	// refused; the intent is retired failed and flagged for manual review.
	Conflict error
}

// Reconcile is the single convergence point for the verify call, the
// webhook and the sweeper. The terminal-status check on the intent is the
// idempotency guard; it is re-run under the row lock so the check and the
// ledger post commit as one atomic step.
func (u *Usecase) Reconcile(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	// Cheap pre-check outside any lock: duplicates of an already-terminal
	// order are acknowledged without touching the loan row.
	peek, err := u.intents.GetByOrderID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment order", in.OrderID)
		}
		return nil, apperrors.Storage(err)
	}
	if peek.Terminal() {
		return &ReconcileResult{Applied: false, Intent: peek}, nil
	}
	if in.Outcome == gateway.OutcomePending {
		return &ReconcileResult{Applied: false, Intent: peek}, nil
	}

	res := &ReconcileResult{}
	err = u.uow.WithinLoanTx(ctx, peek.LoanPublicID, func(r uow.Repos, l *loanDomain.Loan) error {
		intent, err := r.Intents.GetByOrderIDForUpdate(ctx, in.OrderID)
		if err != nil {
			return apperrors.Storage(err)
		}
		if intent.Terminal() {
			// a concurrent duplicate won the race
			res.Intent = intent
			return nil
		}

		now := time.Now().UTC()
		switch in.Outcome {
		case gateway.OutcomeSuccess:
			amount := intent.Amount
			if !in.Amount.IsZero() && !in.Amount.Equal(intent.Amount) {
				intent.Status = paymentDomain.StatusFailed
				intent.FailureReason = fmt.Sprintf("gateway reported amount %s, order was for %s", in.Amount, intent.Amount)
				intent.GatewayPaymentID = in.GatewayPaymentID
				res.Conflict = apperrors.ReconciliationConflict(intent.OrderID, errors.New(intent.FailureReason))
				break
			}

			method := in.Method
			if method == "" {
				method = txnDomain.MethodGateway
			}
			t, err := ledger.Apply(ctx, r, l, ledger.ApplyInput{
				Kind:              txnDomain.KindPayment,
				Amount:            amount,
				Method:            method,
				UserID:            intent.UserID,
				Description:       "Loan payment via gateway order " + intent.OrderID,
				ExternalPaymentID: in.GatewayPaymentID,
				ExternalOrderID:   intent.OrderID,
			})
			if err != nil {
				if apperrors.CodeOf(err) == apperrors.CodeStorageError {
					// infrastructure trouble, roll back and let the caller retry
					return err
				}
				// gateway says paid, ledger says no: retire the intent and
				// surface the discrepancy instead of retrying silently
				intent.Status = paymentDomain.StatusFailed
				intent.FailureReason = "ledger post failed: " + err.Error()
				intent.GatewayPaymentID = in.GatewayPaymentID
				res.Conflict = apperrors.ReconciliationConflict(intent.OrderID, err)
				break
			}
			intent.Status = paymentDomain.StatusSuccess
			intent.GatewayPaymentID = in.GatewayPaymentID
			intent.PaidAt = &now
			res.Applied = true
			res.Transaction = t

		case gateway.OutcomeFailed:
			intent.Status = paymentDomain.StatusFailed
			intent.FailureReason = "gateway reported payment failure"
			intent.GatewayPaymentID = in.GatewayPaymentID

		case gateway.OutcomeCancelled:
			intent.Status = paymentDomain.StatusCancelled
			intent.GatewayPaymentID = in.GatewayPaymentID

		default:
			return apperrors.ValidationField("outcome", "unknown gateway outcome")
		}

		if err := r.Intents.Save(ctx, intent); err != nil {
			return apperrors.Storage(err)
		}
		res.Intent = intent
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", peek.LoanPublicID)
		}
		return nil, err
	}
	if res.Conflict != nil {
		log.Printf("payment: reconciliation conflict on order %s: %v", in.OrderID, res.Conflict)
	}
	return res, nil
}

// Verify is the synchronous reconciliation trigger: the client calls it
// after returning from checkout. It polls the gateway for the order's
// outcome and feeds Reconcile.
func (u *Usecase) Verify(ctx context.Context, act actor.Actor, orderID string) (*ReconcileResult, error) {
	intent, err := u.GetIntent(ctx, act, orderID)
	if err != nil {
		return nil, err
	}
	if intent.Terminal() {
		return &ReconcileResult{Applied: false, Intent: intent}, nil
	}

	result, err := u.gw.GetPayment(ctx, orderID)
	if err != nil {
		return nil, apperrors.Gateway("failed to verify payment with gateway", err)
	}
	return u.Reconcile(ctx, ReconcileInput{
		OrderID:          orderID,
		Outcome:          result.Outcome,
		Amount:           result.Amount,
		Method:           MethodFromGateway(result.Method),
		GatewayPaymentID: result.GatewayPaymentID,
	})
}

func (u *Usecase) GetIntent(ctx context.Context, act actor.Actor, orderID string) (*paymentDomain.Intent, error) {
	intent, err := u.intents.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment order", orderID)
		}
		return nil, apperrors.Storage(err)
	}
	if !act.CanAccess(intent.UserID) {
		return nil, apperrors.AccessDenied("access denied to this payment")
	}
	return intent, nil
}

// SweepPending reconciles intents that have sat pending longer than
// olderThan by polling the gateway for their outcome. Gateways deliver
// webhooks at-least-once but not always; this closes the gap.
func (u *Usecase) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (applied int, err error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := u.intents.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, apperrors.Storage(err)
	}

	for _, intent := range stale {
		result, err := u.gw.GetPayment(ctx, intent.OrderID)
		if err != nil {
			log.Printf("payment: sweep could not query gateway for order %s: %v", intent.OrderID, err)
			continue
		}
		if result.Outcome == gateway.OutcomePending {
			continue
		}
		res, err := u.Reconcile(ctx, ReconcileInput{
			OrderID:          intent.OrderID,
			Outcome:          result.Outcome,
			Amount:           result.Amount,
			Method:           MethodFromGateway(result.Method),
			GatewayPaymentID: result.GatewayPaymentID,
		})
		if err != nil {
			log.Printf("payment: sweep reconcile failed for order %s: %v", intent.OrderID, err)
			continue
		}
		if res.Applied {
			applied++
		}
	}
	return applied, nil
}

// MethodFromGateway maps the gateway's free-form payment method onto the
// ledger's settlement channels; anything unrecognized settles as gateway.
func MethodFromGateway(m string) txnDomain.Method {
	switch m {
	case "card", "credit_card", "debit_card":
		return txnDomain.MethodCard
	case "netbanking", "bank_transfer":
		return txnDomain.MethodBankTransfer
	default:
		return txnDomain.MethodGateway
	}
}
