package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"loanledger-backend/internal/domain/gateway"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const apiVersion = "2022-09-01"

// Client talks to the Cashfree PG REST API.
type Client struct {
	baseURL       string
	appID         string
	secret        string
	webhookSecret string
	http          *http.Client
}

func NewClient(baseURL, appID, secret, webhookSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:       baseURL,
		appID:         appID,
		secret:        secret,
		webhookSecret: webhookSecret,
		http:          &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secret)
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", gateway.ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		return fmt.Errorf("gateway rejected request (status %d): %s", resp.StatusCode, apiErr.Message)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("gateway returned malformed response: %w", err)
		}
	}
	return nil
}

// amounts go out as JSON numbers, the way the gateway expects them
type orderPayload struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	OrderNote       string          `json:"order_note,omitempty"`
	CustomerDetails customerDetails `json:"customer_details"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type orderResponse struct {
	CFOrderID        json.Number `json:"cf_order_id"`
	PaymentSessionID string      `json:"payment_session_id"`
}

func (c *Client) CreateOrder(ctx context.Context, in gateway.CreateOrderInput) (*gateway.Order, error) {
	var resp orderResponse
	err := c.do(ctx, http.MethodPost, "/orders", orderPayload{
		OrderID:       in.OrderID,
		OrderAmount:   in.Amount.InexactFloat64(),
		OrderCurrency: in.Currency,
		OrderNote:     in.Description,
		CustomerDetails: customerDetails{
			CustomerID:    in.CustomerID,
			CustomerPhone: in.CustomerPhone,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &gateway.Order{
		GatewayOrderID: resp.CFOrderID.String(),
		SessionRef:     resp.PaymentSessionID,
	}, nil
}

type paymentEntry struct {
	CFPaymentID   json.Number     `json:"cf_payment_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentGroup  string          `json:"payment_group"`
}

// GetPayment returns the latest payment attempt against an order. An order
// with no attempts yet reads as pending.
func (c *Client) GetPayment(ctx context.Context, orderID string) (*gateway.PaymentResult, error) {
	var entries []paymentEntry
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &gateway.PaymentResult{Outcome: gateway.OutcomePending}, nil
	}
	p := entries[0]
	return &gateway.PaymentResult{
		Outcome:          outcomeFromStatus(p.PaymentStatus),
		Amount:           p.PaymentAmount,
		Method:           p.PaymentGroup,
		GatewayPaymentID: p.CFPaymentID.String(),
	}, nil
}

type refundPayload struct {
	RefundAmount float64 `json:"refund_amount"`
	RefundID     string  `json:"refund_id"`
	RefundNote   string  `json:"refund_note,omitempty"`
}

func (c *Client) InitiateRefund(ctx context.Context, in gateway.RefundInput) error {
	return c.do(ctx, http.MethodPost, "/orders/"+in.OrderID+"/refunds", refundPayload{
		RefundAmount: in.Amount.InexactFloat64(),
		RefundID:     in.RefundID,
		RefundNote:   in.Reason,
	}, nil)
}

func outcomeFromStatus(s string) gateway.Outcome {
	switch s {
	case "SUCCESS":
		return gateway.OutcomeSuccess
	case "FAILED":
		return gateway.OutcomeFailed
	case "CANCELLED", "USER_DROPPED":
		return gateway.OutcomeCancelled
	default:
		return gateway.OutcomePending
	}
}
