package http

import (
	"net/http"

	loanDomain "loanledger-backend/internal/domain/loan"
	loanUC "loanledger-backend/internal/usecase/loan"
	"loanledger-backend/pkg/apperrors"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type LoanHandler struct{ uc *loanUC.Usecase }

func NewLoanHandler(uc *loanUC.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createLoanReq struct {
	OwnerID      string          `json:"owner_id" validate:"omitempty,hex32"`
	LoanType     string          `json:"loan_type" validate:"required,oneof=personal home car business education"`
	Principal    decimal.Decimal `json:"principal" validate:"dec_gt0,dec2"`
	InterestRate decimal.Decimal `json:"interest_rate" validate:"dec_gt0"`
	TermMonths   int             `json:"term_months" validate:"required,gte=1,lte=360"`
	StartDate    string          `json:"start_date" validate:"required"`
	EndDate      string          `json:"end_date" validate:"required"`
	Purpose      string          `json:"purpose"`
	Description  string          `json:"description"`
}

func (h *LoanHandler) Create(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req createLoanReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return respondErr(c, apperrors.ValidationField("start_date", "must be a date"))
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return respondErr(c, apperrors.ValidationField("end_date", "must be a date"))
	}
	l, err := h.uc.Create(c.Request().Context(), act, loanUC.CreateInput{
		OwnerID:      req.OwnerID,
		LoanType:     loanDomain.Type(req.LoanType),
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		TermMonths:   req.TermMonths,
		StartDate:    start,
		EndDate:      end,
		Purpose:      req.Purpose,
		Description:  req.Description,
	})
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *LoanHandler) Get(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	l, err := h.uc.Get(c.Request().Context(), act, c.Param("loan_id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

type updateLoanReq struct {
	LoanType     *string          `json:"loan_type" validate:"omitempty,oneof=personal home car business education"`
	Principal    *decimal.Decimal `json:"principal" validate:"omitempty,dec_gt0,dec2"`
	InterestRate *decimal.Decimal `json:"interest_rate" validate:"omitempty,dec_gt0"`
	TermMonths   *int             `json:"term_months" validate:"omitempty,gte=1,lte=360"`
	StartDate    *string          `json:"start_date"`
	EndDate      *string          `json:"end_date"`
	Purpose      *string          `json:"purpose"`
	Description  *string          `json:"description"`
}

func (h *LoanHandler) Update(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req updateLoanReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	in := loanUC.UpdateInput{
		Principal:    req.Principal,
		InterestRate: req.InterestRate,
		TermMonths:   req.TermMonths,
		Purpose:      req.Purpose,
		Description:  req.Description,
	}
	if req.LoanType != nil {
		lt := loanDomain.Type(*req.LoanType)
		in.LoanType = &lt
	}
	if req.StartDate != nil {
		t, err := parseDate(*req.StartDate)
		if err != nil {
			return respondErr(c, apperrors.ValidationField("start_date", "must be a date"))
		}
		in.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := parseDate(*req.EndDate)
		if err != nil {
			return respondErr(c, apperrors.ValidationField("end_date", "must be a date"))
		}
		in.EndDate = &t
	}
	l, err := h.uc.Update(c.Request().Context(), act, c.Param("loan_id"), in)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

type updateLoanStatusReq struct {
	Status  string `json:"status" validate:"required,oneof=pending approved rejected active completed defaulted"`
	Remarks string `json:"remarks"`
}

func (h *LoanHandler) UpdateStatus(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	var req updateLoanStatusReq
	if err := c.Bind(&req); err != nil {
		return bindErr(c)
	}
	if err := c.Validate(&req); err != nil {
		return validationErr(c, err)
	}
	l, err := h.uc.UpdateStatus(c.Request().Context(), act, c.Param("loan_id"), loanDomain.Status(req.Status), req.Remarks)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) Delete(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	if err := h.uc.Delete(c.Request().Context(), act, c.Param("loan_id")); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *LoanHandler) Amortization(c echo.Context) error {
	act, err := actorOrErr(c)
	if err != nil {
		return respondErr(c, err)
	}
	entries, err := h.uc.Schedule(c.Request().Context(), act, c.Param("loan_id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"schedule": entries})
}
