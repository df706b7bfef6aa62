package loan

import (
	"context"
	"errors"
	"regexp"
	"time"

	"loanledger-backend/internal/domain/actor"
	loanDomain "loanledger-backend/internal/domain/loan"
	"loanledger-backend/internal/domain/uow"
	"loanledger-backend/pkg/amortization"
	"loanledger-backend/pkg/apperrors"
	"loanledger-backend/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

type Usecase struct {
	loans loanDomain.Repository
	uow   uow.UnitOfWork
}

func NewUsecase(loans loanDomain.Repository, tx uow.UnitOfWork) *Usecase {
	return &Usecase{loans: loans, uow: tx}
}

type CreateInput struct {
	OwnerID      string
	LoanType     loanDomain.Type
	Principal    decimal.Decimal
	InterestRate decimal.Decimal
	TermMonths   int
	StartDate    time.Time
	EndDate      time.Time
	Purpose      string
	Description  string
}

// Create opens a loan account. A user creates for themselves and the loan
// starts pending; an administrator creates on behalf of an owner and the
// loan starts approved.
func (u *Usecase) Create(ctx context.Context, act actor.Actor, in CreateInput) (*loanDomain.Loan, error) {
	ownerID := act.UserID
	if act.IsAdmin() {
		if in.OwnerID == "" {
			return nil, apperrors.ValidationField("owner_id", "is required for admin-created loans")
		}
		ownerID = in.OwnerID
	} else if in.OwnerID != "" && in.OwnerID != act.UserID {
		return nil, apperrors.AccessDenied("cannot create a loan for another user")
	}
	if !reHex32.MatchString(ownerID) {
		return nil, apperrors.ValidationField("owner_id", "must be 32-char lowercase hex")
	}
	if !loanDomain.ValidType(in.LoanType) {
		return nil, apperrors.ValidationField("loan_type", "unknown loan type")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || !in.EndDate.After(in.StartDate) {
		return nil, apperrors.ValidationField("end_date", "must be after start_date")
	}

	monthly, err := amortization.MonthlyPayment(in.Principal, in.InterestRate, in.TermMonths)
	if err != nil {
		return nil, termsValidationError(err)
	}

	status := loanDomain.StatusPending
	if act.IsAdmin() {
		status = loanDomain.StatusApproved
	}

	l := &loanDomain.Loan{
		LoanID:           id.NewID32(),
		AccountNumber:    id.NewLoanAccountNumber(),
		UserID:           ownerID,
		CreatedBy:        act.UserID,
		LoanType:         in.LoanType,
		Principal:        in.Principal.Round(2),
		InterestRate:     in.InterestRate,
		TermMonths:       in.TermMonths,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		MonthlyPayment:   monthly,
		RemainingBalance: in.Principal.Round(2),
		Status:           status,
		Purpose:          in.Purpose,
		Description:      in.Description,
		StatusUpdatedAt:  time.Now().UTC(),
	}

	if err := u.loans.Create(ctx, l); err != nil {
		return nil, apperrors.Storage(err)
	}
	return l, nil
}

func (u *Usecase) Get(ctx context.Context, act actor.Actor, loanID string) (*loanDomain.Loan, error) {
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", loanID)
		}
		return nil, apperrors.Storage(err)
	}
	if !act.CanAccess(l.UserID) {
		return nil, apperrors.AccessDenied("access denied to this loan")
	}
	return l, nil
}

type UpdateInput struct {
	LoanType     *loanDomain.Type
	Principal    *decimal.Decimal
	InterestRate *decimal.Decimal
	TermMonths   *int
	StartDate    *time.Time
	EndDate      *time.Time
	Purpose      *string
	Description  *string
}

// Update amends the terms of a loan that is still pending. The monthly
// payment is recomputed and the balance rebased; once a loan leaves pending
// its terms are frozen.
func (u *Usecase) Update(ctx context.Context, act actor.Actor, loanID string, in UpdateInput) (*loanDomain.Loan, error) {
	var out *loanDomain.Loan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		if !act.CanAccess(l.UserID) {
			return apperrors.AccessDenied("access denied to this loan")
		}
		if l.Status != loanDomain.StatusPending {
			return apperrors.BusinessRule("only pending loans can be amended")
		}

		if in.LoanType != nil {
			if !loanDomain.ValidType(*in.LoanType) {
				return apperrors.ValidationField("loan_type", "unknown loan type")
			}
			l.LoanType = *in.LoanType
		}
		termsChanged := false
		if in.Principal != nil {
			l.Principal = in.Principal.Round(2)
			termsChanged = true
		}
		if in.InterestRate != nil {
			l.InterestRate = *in.InterestRate
			termsChanged = true
		}
		if in.TermMonths != nil {
			l.TermMonths = *in.TermMonths
			termsChanged = true
		}
		if in.StartDate != nil {
			l.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			l.EndDate = *in.EndDate
		}
		if !l.EndDate.After(l.StartDate) {
			return apperrors.ValidationField("end_date", "must be after start_date")
		}
		if in.Purpose != nil {
			l.Purpose = *in.Purpose
		}
		if in.Description != nil {
			l.Description = *in.Description
		}

		if termsChanged {
			monthly, err := amortization.MonthlyPayment(l.Principal, l.InterestRate, l.TermMonths)
			if err != nil {
				return termsValidationError(err)
			}
			l.MonthlyPayment = monthly
			// pending loans carry no transactions, so the balance is the principal
			l.RemainingBalance = l.Principal
		}

		if err := r.Loans.Save(ctx, l); err != nil {
			return apperrors.Storage(err)
		}
		out = l
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", loanID)
		}
		return nil, err
	}
	return out, nil
}

// UpdateStatus performs an administrator-triggered status transition. The
// balance is never touched here; balance-driven transitions belong to the
// ledger.
func (u *Usecase) UpdateStatus(ctx context.Context, act actor.Actor, loanID string, target loanDomain.Status, remarks string) (*loanDomain.Loan, error) {
	if !act.IsAdmin() {
		return nil, apperrors.AccessDenied("only administrators may change loan status")
	}
	if !loanDomain.ValidStatus(target) {
		return nil, apperrors.ValidationField("status", "unknown loan status")
	}

	var out *loanDomain.Loan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		if !l.CanTransition(target) {
			return apperrors.BusinessRule("cannot transition loan from " + string(l.Status) + " to " + string(target))
		}
		if target == loanDomain.StatusCompleted && l.RemainingBalance.GreaterThan(decimal.Zero) {
			return apperrors.BusinessRule("loan cannot be completed while a balance remains")
		}
		l.Status = target
		l.StatusUpdatedAt = time.Now().UTC()
		if remarks != "" {
			l.Remarks = remarks
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return apperrors.Storage(err)
		}
		out = l
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("loan", loanID)
		}
		return nil, err
	}
	return out, nil
}

// Delete removes a loan that never became financial history: pending status
// and zero transactions. Everything else is preserved forever.
func (u *Usecase) Delete(ctx context.Context, act actor.Actor, loanID string) error {
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.Loan) error {
		if !act.CanAccess(l.UserID) {
			return apperrors.AccessDenied("access denied to this loan")
		}
		if l.Status != loanDomain.StatusPending {
			return apperrors.BusinessRule("only pending loans can be deleted")
		}
		n, err := r.Transactions.CountByLoan(ctx, l.ID)
		if err != nil {
			return apperrors.Storage(err)
		}
		if n > 0 {
			return apperrors.BusinessRule("cannot delete a loan with existing transactions")
		}
		if err := r.Loans.SoftDelete(ctx, l, act.UserID); err != nil {
			return apperrors.Storage(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("loan", loanID)
		}
		return err
	}
	return nil
}

// Schedule computes the amortization breakdown on demand; nothing is
// persisted.
func (u *Usecase) Schedule(ctx context.Context, act actor.Actor, loanID string) ([]amortization.Entry, error) {
	l, err := u.Get(ctx, act, loanID)
	if err != nil {
		return nil, err
	}
	entries, err := amortization.Schedule(l.Principal, l.InterestRate, l.TermMonths, l.StartDate)
	if err != nil {
		return nil, termsValidationError(err)
	}
	return entries, nil
}

func termsValidationError(err error) error {
	switch {
	case errors.Is(err, amortization.ErrInvalidPrincipal):
		return apperrors.ValidationField("principal", err.Error())
	case errors.Is(err, amortization.ErrInvalidRate):
		return apperrors.ValidationField("interest_rate", err.Error())
	case errors.Is(err, amortization.ErrInvalidTerm):
		return apperrors.ValidationField("term_months", err.Error())
	}
	return apperrors.Validation(err.Error())
}
