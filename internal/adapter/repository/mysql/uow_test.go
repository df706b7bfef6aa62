package mysql

import (
	"context"
	"errors"
	"testing"

	loanDomain "loanledger-backend/internal/domain/loan"
	txnDomain "loanledger-backend/internal/domain/transaction"
	"loanledger-backend/internal/domain/uow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestUoW_WithinTx_Commit(t *testing.T) {
	db := openTestDB(t, &loanSQLite{}, &transactionSQLite{})
	u := NewGormUoW(db)
	ctx := context.Background()

	err := u.WithinTx(ctx, func(r uow.Repos) error {
		return r.Loans.Create(ctx, makeLoan(testLoanID, testUserID))
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	if _, err := NewLoanRepository(db).GetByLoanID(ctx, testLoanID); err != nil {
		t.Fatalf("loan not committed: %v", err)
	}
}

func TestUoW_WithinTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t, &loanSQLite{}, &transactionSQLite{})
	u := NewGormUoW(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := u.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, makeLoan(testLoanID, testUserID)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	if _, err := NewLoanRepository(db).GetByLoanID(ctx, testLoanID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("loan must be rolled back, got %v", err)
	}
}

func TestUoW_WithinLoanTx_LocksAndCommits(t *testing.T) {
	db := openTestDB(t, &loanSQLite{}, &transactionSQLite{})
	u := NewGormUoW(db)
	ctx := context.Background()

	seed := makeLoan(testLoanID, testUserID)
	if err := NewLoanRepository(db).Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := u.WithinLoanTx(ctx, testLoanID, func(r uow.Repos, l *loanDomain.Loan) error {
		l.RemainingBalance = l.RemainingBalance.Sub(decimal.RequireFromString("888.49"))
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		return r.Transactions.Create(ctx, makeTxn(testTxnID, l.ID))
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}

	got, err := NewLoanRepository(db).GetByLoanID(ctx, testLoanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if !got.RemainingBalance.Equal(decimal.RequireFromString("9111.51")) {
		t.Fatalf("balance = %s", got.RemainingBalance)
	}
	if _, err := NewTransactionRepository(db).GetByTransactionID(ctx, testTxnID); err != nil {
		t.Fatalf("transaction not committed: %v", err)
	}
}

func TestUoW_WithinLoanTx_RollbackKeepsBothSides(t *testing.T) {
	db := openTestDB(t, &loanSQLite{}, &transactionSQLite{})
	u := NewGormUoW(db)
	ctx := context.Background()

	seed := makeLoan(testLoanID, testUserID)
	if err := NewLoanRepository(db).Create(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := u.WithinLoanTx(ctx, testLoanID, func(r uow.Repos, l *loanDomain.Loan) error {
		l.RemainingBalance = decimal.Zero
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		if err := r.Transactions.Create(ctx, makeTxn(testTxnID, l.ID)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	got, err := NewLoanRepository(db).GetByLoanID(ctx, testLoanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if !got.RemainingBalance.Equal(decimal.RequireFromString("10000.00")) {
		t.Fatalf("balance = %s, want untouched", got.RemainingBalance)
	}
	if _, err := NewTransactionRepository(db).GetByTransactionID(ctx, testTxnID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("transaction must be rolled back, got %v", err)
	}
}

func TestUoW_WithinLoanTx_MissingLoan(t *testing.T) {
	db := openTestDB(t, &loanSQLite{}, &transactionSQLite{})
	u := NewGormUoW(db)

	called := false
	err := u.WithinLoanTx(context.Background(), testLoanID, func(r uow.Repos, l *loanDomain.Loan) error {
		called = true
		return nil
	})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want ErrRecordNotFound, got %v", err)
	}
	if called {
		t.Fatal("callback must not run without a loan row")
	}
}

var _ uow.UnitOfWork = (*GormUoW)(nil)

var _ txnDomain.Repository = (*TransactionRepository)(nil)
