package loan

import (
	"context"
	"testing"
	"time"

	"loanledger-backend/internal/domain/actor"
	loanDomain "loanledger-backend/internal/domain/loan"
	txnDomain "loanledger-backend/internal/domain/transaction"
	"loanledger-backend/internal/domain/uow"
	"loanledger-backend/pkg/apperrors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ----- in-memory test doubles -----

type memdb struct {
	loans  map[string]*loanDomain.Loan
	txns   []*txnDomain.Transaction
	nextID uint64
}

func newMemdb() *memdb {
	return &memdb{loans: map[string]*loanDomain.Loan{}, nextID: 1}
}

func (m *memdb) repos() uow.Repos {
	return uow.Repos{Loans: &memLoans{m}, Transactions: &memTxns{m}}
}

type memLoans struct{ db *memdb }

func (r *memLoans) Create(ctx context.Context, l *loanDomain.Loan) error {
	l.ID = r.db.nextID
	r.db.nextID++
	r.db.loans[l.LoanID] = l
	return nil
}
func (r *memLoans) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	if l, ok := r.db.loans[loanID]; ok {
		return l, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *memLoans) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	return r.GetByLoanID(ctx, loanID)
}
func (r *memLoans) Save(ctx context.Context, l *loanDomain.Loan) error { return nil }
func (r *memLoans) SoftDelete(ctx context.Context, l *loanDomain.Loan, deletedBy string) error {
	l.DeletedBy = deletedBy
	delete(r.db.loans, l.LoanID)
	return nil
}

type memTxns struct{ db *memdb }

func (r *memTxns) Create(ctx context.Context, t *txnDomain.Transaction) error {
	t.ID = r.db.nextID
	r.db.nextID++
	r.db.txns = append(r.db.txns, t)
	return nil
}
func (r *memTxns) GetByTransactionID(ctx context.Context, transactionID string) (*txnDomain.Transaction, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *memTxns) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*txnDomain.Transaction, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *memTxns) GetByIDForUpdate(ctx context.Context, id uint64) (*txnDomain.Transaction, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *memTxns) Save(ctx context.Context, t *txnDomain.Transaction) error { return nil }
func (r *memTxns) CountByLoan(ctx context.Context, loanID uint64) (int64, error) {
	var n int64
	for _, t := range r.db.txns {
		if t.LoanID == loanID {
			n++
		}
	}
	return n, nil
}

type memUoW struct{ db *memdb }

func (u *memUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return fn(u.db.repos())
}
func (u *memUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loanDomain.Loan) error) error {
	l, ok := u.db.loans[loanID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	return fn(u.db.repos(), l)
}

const (
	ownerID = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	adminID = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

var (
	owner = actor.Actor{UserID: ownerID, Role: actor.RoleUser}
	admin = actor.Actor{UserID: adminID, Role: actor.RoleAdmin}
)

func validInput() CreateInput {
	return CreateInput{
		LoanType:     loanDomain.TypePersonal,
		Principal:    decimal.RequireFromString("10000.00"),
		InterestRate: decimal.RequireFromString("12"),
		TermMonths:   12,
		StartDate:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC),
		Purpose:      "home renovation",
	}
}

// ----- Create -----

func TestCreate_ByUser_StartsPending(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})

	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Status != loanDomain.StatusPending {
		t.Fatalf("status = %s, want pending", l.Status)
	}
	if l.UserID != ownerID || l.CreatedBy != ownerID {
		t.Fatalf("ownership: %+v", l)
	}
	if len(l.LoanID) != 32 {
		t.Fatalf("loan id length = %d", len(l.LoanID))
	}
	if l.AccountNumber[:2] != "LN" {
		t.Fatalf("account number = %q", l.AccountNumber)
	}
	if want := decimal.RequireFromString("888.49"); !l.MonthlyPayment.Equal(want) {
		t.Fatalf("monthly payment = %s, want %s", l.MonthlyPayment, want)
	}
	if !l.RemainingBalance.Equal(l.Principal) {
		t.Fatalf("balance = %s, want principal", l.RemainingBalance)
	}
}

func TestCreate_ByAdmin_StartsApproved(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})

	in := validInput()
	in.OwnerID = ownerID
	l, err := uc.Create(context.Background(), admin, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Status != loanDomain.StatusApproved {
		t.Fatalf("status = %s, want approved", l.Status)
	}
	if l.UserID != ownerID || l.CreatedBy != adminID {
		t.Fatalf("ownership: %+v", l)
	}
}

func TestCreate_AdminWithoutOwner_Rejected(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})

	_, err := uc.Create(context.Background(), admin, validInput())
	if apperrors.CodeOf(err) != apperrors.CodeValidationFailed {
		t.Fatalf("want validation failure, got %v", err)
	}
}

func TestCreate_UserForAnotherUser_Denied(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})

	in := validInput()
	in.OwnerID = "dddddddddddddddddddddddddddddddd"
	_, err := uc.Create(context.Background(), owner, in)
	if apperrors.CodeOf(err) != apperrors.CodeAccessDenied {
		t.Fatalf("want access denied, got %v", err)
	}
}

func TestCreate_BadTerms_FieldErrors(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})

	cases := []struct {
		name   string
		mutate func(in *CreateInput)
		field  string
	}{
		{"zero principal", func(in *CreateInput) { in.Principal = decimal.Zero }, "principal"},
		{"rate above cap", func(in *CreateInput) { in.InterestRate = decimal.RequireFromString("50.01") }, "interest_rate"},
		{"term too long", func(in *CreateInput) { in.TermMonths = 361 }, "term_months"},
		{"end before start", func(in *CreateInput) { in.EndDate = in.StartDate.AddDate(0, -1, 0) }, "end_date"},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := uc.Create(context.Background(), owner, in)
		ae, ok := apperrors.AsAppError(err)
		if !ok || ae.Code != apperrors.CodeValidationFailed {
			t.Fatalf("%s: want validation failure, got %v", tc.name, err)
		}
		if len(ae.Fields) == 0 || ae.Fields[0].Field != tc.field {
			t.Fatalf("%s: field = %+v, want %s", tc.name, ae.Fields, tc.field)
		}
	}
}

// ----- Update -----

func TestUpdate_PendingLoan_RecomputesPayment(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	principal := decimal.RequireFromString("20000.00")
	got, err := uc.Update(context.Background(), owner, l.LoanID, UpdateInput{Principal: &principal})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	// 20000 at 12% over 12 months: double the 10000 payment
	if want := decimal.RequireFromString("1776.98"); !got.MonthlyPayment.Equal(want) {
		t.Fatalf("monthly payment = %s, want %s", got.MonthlyPayment, want)
	}
	if !got.RemainingBalance.Equal(principal) {
		t.Fatalf("balance = %s, want rebased to principal", got.RemainingBalance)
	}
}

func TestUpdate_NonPendingLoan_Frozen(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	l.Status = loanDomain.StatusActive

	principal := decimal.RequireFromString("20000.00")
	_, err = uc.Update(context.Background(), owner, l.LoanID, UpdateInput{Principal: &principal})
	if apperrors.CodeOf(err) != apperrors.CodeBusinessRuleViolation {
		t.Fatalf("want business rule violation, got %v", err)
	}
}

// ----- UpdateStatus -----

func TestUpdateStatus_AdminTransitions(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := uc.UpdateStatus(context.Background(), owner, l.LoanID, loanDomain.StatusApproved, ""); apperrors.CodeOf(err) != apperrors.CodeAccessDenied {
		t.Fatalf("non-admin transition: want access denied, got %v", err)
	}

	got, err := uc.UpdateStatus(context.Background(), admin, l.LoanID, loanDomain.StatusApproved, "verified income")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != loanDomain.StatusApproved || got.Remarks != "verified income" {
		t.Fatalf("loan = %+v", got)
	}

	// approved -> completed is not a direct admin transition
	if _, err := uc.UpdateStatus(context.Background(), admin, l.LoanID, loanDomain.StatusCompleted, ""); apperrors.CodeOf(err) != apperrors.CodeBusinessRuleViolation {
		t.Fatalf("want business rule violation, got %v", err)
	}
}

func TestUpdateStatus_CompleteRequiresZeroBalance(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	l.Status = loanDomain.StatusActive

	_, err = uc.UpdateStatus(context.Background(), admin, l.LoanID, loanDomain.StatusCompleted, "")
	if apperrors.CodeOf(err) != apperrors.CodeBusinessRuleViolation {
		t.Fatalf("want business rule violation, got %v", err)
	}

	l.RemainingBalance = decimal.Zero
	got, err := uc.UpdateStatus(context.Background(), admin, l.LoanID, loanDomain.StatusCompleted, "")
	if err != nil {
		t.Fatalf("complete with zero balance: %v", err)
	}
	if got.Status != loanDomain.StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestUpdateStatus_DefaultedCanReturnActive(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	l.Status = loanDomain.StatusDefaulted

	got, err := uc.UpdateStatus(context.Background(), admin, l.LoanID, loanDomain.StatusActive, "payment plan agreed")
	if err != nil {
		t.Fatalf("reinstate: %v", err)
	}
	if got.Status != loanDomain.StatusActive {
		t.Fatalf("status = %s", got.Status)
	}
}

// ----- Delete -----

func TestDelete_PendingWithoutTransactions(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := uc.Delete(context.Background(), owner, l.LoanID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := db.loans[l.LoanID]; ok {
		t.Fatal("loan must be gone")
	}
	if l.DeletedBy != ownerID {
		t.Fatalf("deleted_by = %q", l.DeletedBy)
	}
}

func TestDelete_WithTransactions_Rejected(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	db.txns = append(db.txns, &txnDomain.Transaction{LoanID: l.ID})

	err = uc.Delete(context.Background(), owner, l.LoanID)
	if apperrors.CodeOf(err) != apperrors.CodeBusinessRuleViolation {
		t.Fatalf("want business rule violation, got %v", err)
	}
}

func TestDelete_NonPending_Rejected(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	l.Status = loanDomain.StatusActive

	err = uc.Delete(context.Background(), owner, l.LoanID)
	if apperrors.CodeOf(err) != apperrors.CodeBusinessRuleViolation {
		t.Fatalf("want business rule violation, got %v", err)
	}
}

// ----- Schedule -----

func TestSchedule_MatchesLoanTerms(t *testing.T) {
	db := newMemdb()
	uc := NewUsecase(&memLoans{db}, &memUoW{db})
	l, err := uc.Create(context.Background(), owner, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := uc.Schedule(context.Background(), owner, l.LoanID)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(entries) != 12 {
		t.Fatalf("periods = %d, want 12", len(entries))
	}
	if !entries[0].Payment.Equal(l.MonthlyPayment) {
		t.Fatalf("schedule payment %s != loan payment %s", entries[0].Payment, l.MonthlyPayment)
	}
	if !entries[0].BeginningBalance.Equal(l.Principal) {
		t.Fatalf("first beginning balance = %s", entries[0].BeginningBalance)
	}

	stranger := actor.Actor{UserID: "dddddddddddddddddddddddddddddddd", Role: actor.RoleUser}
	if _, err := uc.Schedule(context.Background(), stranger, l.LoanID); apperrors.CodeOf(err) != apperrors.CodeAccessDenied {
		t.Fatalf("stranger schedule: want access denied, got %v", err)
	}
}
