package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var ErrNotFound = errors.New("payment intent not found")

// Intent is the pre-confirmation record of a gateway payment order. It is
// the sole idempotency anchor for reconciliation: once it reaches a terminal
// status it is never mutated again, and any later event for the same order
// is a no-op.
type Intent struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"-"`
	OrderID      string          `gorm:"size:32;uniqueIndex:ux_payment_intents_order_id" json:"order_id"`
	LoanID       uint64          `gorm:"index:idx_payment_intents_loan" json:"-"`
	LoanPublicID string          `gorm:"size:32;index:idx_payment_intents_loan_public" json:"loan_id"`
	UserID       string          `gorm:"size:32;index:idx_payment_intents_user" json:"user_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	Currency     string          `gorm:"size:3;default:'INR'" json:"currency"`
	Status       Status          `gorm:"type:enum('pending','success','failed','cancelled');default:'pending'" json:"status"`
	// Gateway-side identifiers, filled in as they become known.
	GatewayOrderID   string    `gorm:"size:64" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string    `gorm:"size:64" json:"gateway_payment_id,omitempty"`
	SessionRef       string    `gorm:"size:128" json:"session_ref,omitempty"`
	FailureReason    string    `gorm:"type:text" json:"failure_reason,omitempty"`
	Description      string    `gorm:"type:text" json:"description,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Intent) TableName() string { return "payment_intents" }

// Terminal reports whether the intent has reached its final status.
func (i *Intent) Terminal() bool {
	return i.Status == StatusSuccess || i.Status == StatusFailed || i.Status == StatusCancelled
}
