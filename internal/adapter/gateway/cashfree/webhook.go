package cashfree

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"loanledger-backend/internal/domain/gateway"

	"github.com/shopspring/decimal"
)

type webhookEnvelope struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID       string          `json:"order_id"`
			OrderAmount   decimal.Decimal `json:"order_amount"`
			CFPaymentID   json.Number     `json:"cf_payment_id"`
			PaymentMethod string          `json:"payment_method"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   json.Number     `json:"cf_payment_id"`
			PaymentAmount decimal.Decimal `json:"payment_amount"`
			PaymentGroup  string          `json:"payment_group"`
		} `json:"payment"`
	} `json:"data"`
}

// DecodeWebhook checks the HMAC signature over the raw body and maps the
// notification onto a webhook event. The signature is base64(HMAC-SHA256)
// keyed with the webhook secret.
func (c *Client) DecodeWebhook(signature string, body []byte) (*gateway.WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, gateway.ErrBadSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}
	if env.Data.Order.OrderID == "" {
		return nil, fmt.Errorf("webhook payload missing order id")
	}

	ev := &gateway.WebhookEvent{
		OrderID:          env.Data.Order.OrderID,
		Amount:           env.Data.Order.OrderAmount,
		Method:           env.Data.Order.PaymentMethod,
		GatewayPaymentID: env.Data.Order.CFPaymentID.String(),
	}
	// newer payloads carry the payment block; prefer it when present
	if env.Data.Payment.CFPaymentID.String() != "" {
		ev.GatewayPaymentID = env.Data.Payment.CFPaymentID.String()
		ev.Amount = env.Data.Payment.PaymentAmount
		ev.Method = env.Data.Payment.PaymentGroup
	}

	switch env.Type {
	case "PAYMENT_SUCCESS_WEBHOOK":
		ev.Outcome = gateway.OutcomeSuccess
	case "PAYMENT_FAILED_WEBHOOK":
		ev.Outcome = gateway.OutcomeFailed
	case "PAYMENT_USER_DROPPED_WEBHOOK":
		ev.Outcome = gateway.OutcomeCancelled
	default:
		ev.Outcome = gateway.OutcomePending
	}
	return ev, nil
}
