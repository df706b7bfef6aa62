package http

import (
	"errors"
	"io"
	"net/http"

	"loanledger-backend/internal/domain/gateway"
	paymentUC "loanledger-backend/internal/usecase/payment"
	"loanledger-backend/pkg/apperrors"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// WebhookDecoder verifies a raw gateway notification and turns it into an
// event. Implemented by the gateway client adapter.
type WebhookDecoder interface {
	DecodeWebhook(signature string, body []byte) (*gateway.WebhookEvent, error)
}

type PaymentHandler struct {
	uc *paymentUC.Usecase
	wh WebhookDecoder
}

func NewPaymentHandler(uc *paymentUC.Usecase, wh WebhookDecoder) *PaymentHandler {
	return &PaymentHandler{uc: uc, wh: wh}
}

type createOrderReq struct {
	LoanID      string          `json:"loan_id" validate:"required,hex32"`
	Amount      decimal.Decimal `json:"amount" validate:"dec_gt0,dec2"`
	Description string          `json:"description"`
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	intent, err := h.uc.CreateOrder(c.Request().Context(), act, paymentUC.CreateOrderInput{
		LoanID:      req.LoanID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, intent)
}

type verifyReq struct {
	OrderID string `json:"order_id" validate:"required"`
}

func (h *PaymentHandler) Verify(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	res, err := h.uc.Verify(c.Request().Context(), act, req.OrderID)
	if err != nil {
		return respondErr(c, err)
	}
	if res.Conflict != nil {
		return respondErr(c, res.Conflict)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"applied":     res.Applied,
		"intent":      res.Intent,
		"transaction": res.Transaction,
	})
}

func (h *PaymentHandler) GetIntent(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	intent, err := h.uc.GetIntent(c.Request().Context(), act, c.Param("order_id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, intent)
}

// Webhook ingests asynchronous gateway notifications. Responses are chosen
// for the gateway's retry policy: duplicates and orders we never issued are
// acknowledged with 200 so retries stop, storage trouble answers 503 so the
// gateway tries again later.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
	}
	sig := c.Request().Header.Get("x-webhook-signature")

	ev, err := h.wh.DecodeWebhook(sig, body)
	if err != nil {
		if errors.Is(err, gateway.ErrBadSignature) {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed payload"})
	}

	res, err := h.uc.Reconcile(c.Request().Context(), paymentUC.ReconcileInput{
		OrderID:          ev.OrderID,
		Outcome:          ev.Outcome,
		Amount:           ev.Amount,
		Method:           paymentUC.MethodFromGateway(ev.Method),
		GatewayPaymentID: ev.GatewayPaymentID,
	})
	if err != nil {
		switch apperrors.CodeOf(err) {
		case apperrors.CodeNotFound:
			// not an order of ours, ack so the gateway stops retrying
			return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
		case apperrors.CodeStorageError:
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable"})
		}
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporarily unavailable"})
	}
	if res.Conflict != nil {
		// recorded on the intent for manual review; the event itself is
		// consumed, nothing to retry
		return c.JSON(http.StatusOK, map[string]string{"status": "conflict_recorded"})
	}
	if !res.Applied {
		return c.JSON(http.StatusOK, map[string]string{"status": "already_processed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "processed"})
}
