package mysql

import (
	"context"
	"time"

	paymentDomain "loanledger-backend/internal/domain/payment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IntentRepository struct{ db *gorm.DB }

func NewIntentRepository(db *gorm.DB) *IntentRepository { return &IntentRepository{db: db} }

func (r *IntentRepository) Create(ctx context.Context, i *paymentDomain.Intent) error {
	return r.db.WithContext(ctx).Create(i).Error
}

func (r *IntentRepository) Save(ctx context.Context, i *paymentDomain.Intent) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *IntentRepository) GetByOrderID(ctx context.Context, orderID string) (*paymentDomain.Intent, error) {
	var out paymentDomain.Intent
	res := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&out)
	return &out, res.Error
}

// GetByOrderIDForUpdate locks the intent row so concurrent reconciliation
// events for one order serialize on it.
func (r *IntentRepository) GetByOrderIDForUpdate(ctx context.Context, orderID string) (*paymentDomain.Intent, error) {
	var out paymentDomain.Intent
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID).
		First(&out)
	return &out, res.Error
}

func (r *IntentRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*paymentDomain.Intent, error) {
	var out []*paymentDomain.Intent
	res := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", paymentDomain.StatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&out)
	return out, res.Error
}
