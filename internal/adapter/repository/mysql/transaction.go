package mysql

import (
	"context"

	txnDomain "loanledger-backend/internal/domain/transaction"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TransactionRepository struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *txnDomain.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) Save(ctx context.Context, t *txnDomain.Transaction) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*txnDomain.Transaction, error) {
	var out txnDomain.Transaction
	res := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&out)
	return &out, res.Error
}

func (r *TransactionRepository) GetByTransactionIDForUpdate(ctx context.Context, transactionID string) (*txnDomain.Transaction, error) {
	var out txnDomain.Transaction
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("transaction_id = ?", transactionID).
		First(&out)
	return &out, res.Error
}

func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*txnDomain.Transaction, error) {
	var out txnDomain.Transaction
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out)
	return &out, res.Error
}

func (r *TransactionRepository) CountByLoan(ctx context.Context, loanID uint64) (int64, error) {
	var n int64
	res := r.db.WithContext(ctx).
		Model(&txnDomain.Transaction{}).
		Where("loan_id = ?", loanID).
		Count(&n)
	return n, res.Error
}
