package http

import (
	"net/http"
	"time"

	txnDomain "loanledger-backend/internal/domain/transaction"
	"loanledger-backend/internal/usecase/ledger"
	refundUC "loanledger-backend/internal/usecase/refund"
	"loanledger-backend/pkg/apperrors"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type TransactionHandler struct {
	ledger  *ledger.Usecase
	refunds *refundUC.Usecase
}

func NewTransactionHandler(l *ledger.Usecase, r *refundUC.Usecase) *TransactionHandler {
	return &TransactionHandler{ledger: l, refunds: r}
}

type postTransactionReq struct {
	LoanID string `json:"loan_id" validate:"required,hex32"`
	Kind   string `json:"kind" validate:"required,oneof=payment disbursement refund"`
	// UserID lets an administrator attribute the entry to someone other
	// than the loan owner; everyone else's entries go to the owner.
	UserID          string          `json:"user_id" validate:"omitempty,hex32"`
	Amount          decimal.Decimal `json:"amount" validate:"dec_gt0,dec2"`
	Method          string          `json:"method" validate:"required,oneof=bank_transfer cash check card"`
	Description     string          `json:"description"`
	TransactionDate string          `json:"transaction_date"`
}

// Post records a manual ledger entry. Gateway entries never come through
// here; they are produced by reconciliation only.
func (h *TransactionHandler) Post(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req postTransactionReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	var txDate time.Time
	if req.TransactionDate != "" {
		txDate, err = parseDate(req.TransactionDate)
		if err != nil {
			return respondErr(c, apperrors.ValidationField("transaction_date", "must be a date"))
		}
	}
	t, err := h.ledger.Post(c.Request().Context(), act, ledger.PostInput{
		LoanID:          req.LoanID,
		Kind:            txnDomain.Kind(req.Kind),
		Amount:          req.Amount,
		Method:          txnDomain.Method(req.Method),
		UserID:          req.UserID,
		Description:     req.Description,
		TransactionDate: txDate,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *TransactionHandler) Get(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	t, err := h.ledger.Get(c.Request().Context(), act, c.Param("transaction_id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type updateTransactionReq struct {
	Description *string `json:"description"`
	Method      *string `json:"method" validate:"omitempty,oneof=bank_transfer cash check card"`
}

func (h *TransactionHandler) UpdateMeta(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req updateTransactionReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	in := ledger.UpdateMetaInput{Description: req.Description}
	if req.Method != nil {
		m := txnDomain.Method(*req.Method)
		in.Method = &m
	}
	t, err := h.ledger.UpdateMeta(c.Request().Context(), act, c.Param("transaction_id"), in)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Reverse backs a manual entry out of the ledger. The row stays, marked
// cancelled, and the loan balance is restored.
func (h *TransactionHandler) Reverse(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	t, err := h.ledger.Reverse(c.Request().Context(), act, c.Param("transaction_id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

type refundReq struct {
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,dec_gt0,dec2"`
	Reason string           `json:"reason"`
}

func (h *TransactionHandler) Refund(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req refundReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	t, err := h.refunds.Refund(c.Request().Context(), act, refundUC.Input{
		TransactionID: c.Param("transaction_id"),
		Amount:        req.Amount,
		Reason:        req.Reason,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}
