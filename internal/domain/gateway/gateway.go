package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Outcome is the gateway's reported result for a payment order.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomePending   Outcome = "pending"
)

var (
	ErrUnavailable  = errors.New("payment gateway unavailable")
	ErrBadSignature = errors.New("webhook signature mismatch")
)

type CreateOrderInput struct {
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	CustomerID    string
	CustomerPhone string
}

type Order struct {
	GatewayOrderID string
	SessionRef     string
}

// PaymentResult is the gateway's view of an order, returned by the verify
// poll. GatewayPaymentID is the raw payment id used as the ledger's
// idempotency correlation.
type PaymentResult struct {
	Outcome          Outcome
	Amount           decimal.Decimal
	Method           string
	GatewayPaymentID string
}

// WebhookEvent is a signature-verified asynchronous notification about an
// order. It carries the same facts as a verify poll.
type WebhookEvent struct {
	OrderID          string
	Outcome          Outcome
	Amount           decimal.Decimal
	Method           string
	GatewayPaymentID string
}

type RefundInput struct {
	OrderID  string
	RefundID string
	Amount   decimal.Decimal
	Reason   string
}

// Client is the external payment gateway collaborator. Calls are
// at-least-once and must never be assumed idempotent; idempotency is
// enforced by the reconciler's intent terminal-state check.
type Client interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error)
	GetPayment(ctx context.Context, orderID string) (*PaymentResult, error)
	InitiateRefund(ctx context.Context, in RefundInput) error
}
