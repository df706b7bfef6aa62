package cashfree

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loanledger-backend/internal/domain/gateway"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "app-id", "secret", "whsecret", 5*time.Second), srv
}

func TestCreateOrder(t *testing.T) {
	var gotPath, gotClientID, gotVersion string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotClientID = r.Header.Get("x-client-id")
		gotVersion = r.Header.Get("x-api-version")
		if r.Header.Get("x-request-id") == "" {
			t.Error("missing x-request-id header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cf_order_id":12345,"payment_session_id":"session_abc"}`))
	})

	order, err := c.CreateOrder(context.Background(), gateway.CreateOrderInput{
		OrderID:    "ORD1756700000123456",
		Amount:     decimal.RequireFromString("888.49"),
		Currency:   "INR",
		CustomerID: "cust1",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if gotPath != "/orders" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotClientID != "app-id" || gotVersion != apiVersion {
		t.Fatalf("auth headers = %q / %q", gotClientID, gotVersion)
	}
	if gotBody["order_amount"] != 888.49 {
		t.Fatalf("order_amount = %v", gotBody["order_amount"])
	}
	if order.GatewayOrderID != "12345" || order.SessionRef != "session_abc" {
		t.Fatalf("order = %+v", order)
	}
}

func TestGetPayment_Outcomes(t *testing.T) {
	cases := []struct {
		body string
		want gateway.Outcome
	}{
		{`[{"cf_payment_id":9,"payment_status":"SUCCESS","payment_amount":500.00,"payment_group":"card"}]`, gateway.OutcomeSuccess},
		{`[{"cf_payment_id":9,"payment_status":"FAILED","payment_amount":500.00}]`, gateway.OutcomeFailed},
		{`[{"cf_payment_id":9,"payment_status":"USER_DROPPED","payment_amount":500.00}]`, gateway.OutcomeCancelled},
		{`[]`, gateway.OutcomePending},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders/ORD1/payments" {
				t.Errorf("path = %q", r.URL.Path)
			}
			_, _ = w.Write([]byte(tc.body))
		})
		res, err := c.GetPayment(context.Background(), "ORD1")
		if err != nil {
			t.Fatalf("GetPayment: %v", err)
		}
		if res.Outcome != tc.want {
			t.Fatalf("outcome = %q, want %q", res.Outcome, tc.want)
		}
	}
}

func TestGetPayment_ServerError_IsUnavailable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GetPayment(context.Background(), "ORD1")
	if !errors.Is(err, gateway.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestInitiateRefund_RejectedRequest(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"refund already processed"}`))
	})
	err := c.InitiateRefund(context.Background(), gateway.RefundInput{
		OrderID:  "ORD1",
		RefundID: "RF1756700000123456",
		Amount:   decimal.RequireFromString("100.00"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, gateway.ErrUnavailable) {
		t.Fatalf("4xx must not read as unavailable: %v", err)
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestDecodeWebhook(t *testing.T) {
	c := NewClient("http://unused", "a", "s", "whsecret", time.Second)
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"ORD42","order_amount":250.00,"cf_payment_id":777,"payment_method":"netbanking"}}}`)

	ev, err := c.DecodeWebhook(sign("whsecret", body), body)
	if err != nil {
		t.Fatalf("DecodeWebhook: %v", err)
	}
	if ev.OrderID != "ORD42" || ev.Outcome != gateway.OutcomeSuccess {
		t.Fatalf("event = %+v", ev)
	}
	if ev.GatewayPaymentID != "777" || ev.Method != "netbanking" {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.Amount.Equal(decimal.RequireFromString("250")) {
		t.Fatalf("amount = %s", ev.Amount)
	}
}

func TestDecodeWebhook_PaymentBlockPreferred(t *testing.T) {
	c := NewClient("http://unused", "a", "s", "whsecret", time.Second)
	body := []byte(`{"type":"PAYMENT_FAILED_WEBHOOK","data":{"order":{"order_id":"ORD42","order_amount":250.00},"payment":{"cf_payment_id":888,"payment_amount":249.00,"payment_group":"upi"}}}`)

	ev, err := c.DecodeWebhook(sign("whsecret", body), body)
	if err != nil {
		t.Fatalf("DecodeWebhook: %v", err)
	}
	if ev.GatewayPaymentID != "888" || ev.Method != "upi" || ev.Outcome != gateway.OutcomeFailed {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDecodeWebhook_BadSignature(t *testing.T) {
	c := NewClient("http://unused", "a", "s", "whsecret", time.Second)
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"ORD42"}}}`)

	_, err := c.DecodeWebhook("bogus", body)
	if !errors.Is(err, gateway.ErrBadSignature) {
		t.Fatalf("want ErrBadSignature, got %v", err)
	}
}

func TestDecodeWebhook_MissingOrder(t *testing.T) {
	c := NewClient("http://unused", "a", "s", "whsecret", time.Second)
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{}}`)

	if _, err := c.DecodeWebhook(sign("whsecret", body), body); err == nil {
		t.Fatal("expected error for missing order id")
	}
}
