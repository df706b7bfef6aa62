package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPayment      Kind = "payment"
	KindDisbursement Kind = "disbursement"
	KindRefund       Kind = "refund"
)

type Method string

const (
	MethodGateway      Method = "gateway"
	MethodBankTransfer Method = "bank_transfer"
	MethodCash         Method = "cash"
	MethodCheck        Method = "check"
	MethodCard         Method = "card"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusCancelled Status = "cancelled"
)

var ErrNotFound = errors.New("transaction not found")

// Transaction is one money movement against a loan. Its financial effect is
// immutable once applied; reversal and refund are new ledger entries.
type Transaction struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	TransactionID string          `gorm:"size:32;uniqueIndex:ux_transactions_transaction_id" json:"transaction_id"`
	Reference     string          `gorm:"size:32;uniqueIndex:ux_transactions_reference" json:"reference"`
	LoanID        uint64          `gorm:"index:idx_transactions_loan" json:"-"`
	LoanPublicID  string          `gorm:"size:32;index:idx_transactions_loan_public" json:"loan_id"`
	UserID        string          `gorm:"size:32;index:idx_transactions_user" json:"user_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	Kind          Kind            `gorm:"type:enum('payment','disbursement','refund')" json:"kind"`
	Method        Method          `gorm:"type:enum('gateway','bank_transfer','cash','check','card')" json:"method"`
	Status        Status          `gorm:"type:enum('pending','completed','failed','refunded','cancelled');default:'pending'" json:"status"`
	// ExternalPaymentID correlates to the gateway payment; it is the
	// idempotency key for reconciliation and marks the entry
	// gateway-confirmed (non-reversible).
	ExternalPaymentID string `gorm:"size:64;index:idx_transactions_external" json:"external_payment_id,omitempty"`
	// ExternalOrderID is the gateway order the payment settled, kept so a
	// later refund can be routed back through the gateway.
	ExternalOrderID string `gorm:"size:64" json:"external_order_id,omitempty"`
	// RefundedAmount accumulates partial refunds against a payment.
	RefundedAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"refunded_amount"`
	// RefundOfID links a refund entry back to the payment it compensates.
	RefundOfID      uint64          `gorm:"index" json:"-"`
	Description     string          `gorm:"type:text" json:"description,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string { return "transactions" }

// GatewayConfirmed reports whether the entry was produced by gateway
// reconciliation. Such entries may be refunded but never reversed.
func (t *Transaction) GatewayConfirmed() bool { return t.ExternalPaymentID != "" }

// Refundable returns how much of a payment is still refundable.
func (t *Transaction) Refundable() decimal.Decimal {
	return t.Amount.Sub(t.RefundedAmount)
}

func ValidKind(k Kind) bool {
	switch k {
	case KindPayment, KindDisbursement, KindRefund:
		return true
	}
	return false
}

func ValidMethod(m Method) bool {
	switch m {
	case MethodGateway, MethodBankTransfer, MethodCash, MethodCheck, MethodCard:
		return true
	}
	return false
}
