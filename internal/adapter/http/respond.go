package http

import (
	"net/http"

	"loanledger-backend/pkg/apperrors"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details []apperrors.FieldError `json:"details,omitempty"`
}

// respondErr maps the application error taxonomy onto HTTP statuses.
func respondErr(c echo.Context, err error) error {
	ae, ok := apperrors.AsAppError(err)
	if !ok {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
	status := http.StatusInternalServerError
	switch ae.Code {
	case apperrors.CodeValidationFailed, apperrors.CodeBusinessRuleViolation:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeAccessDenied:
		status = http.StatusForbidden
	case apperrors.CodeReconciliationConflict:
		status = http.StatusConflict
	case apperrors.CodeGatewayError:
		status = http.StatusBadGateway
	}
	return c.JSON(status, ErrorResponse{Error: ae.Message, Code: ae.Code, Details: ae.Fields})
}

func bindErr(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "invalid body",
		Code:  apperrors.CodeValidationFailed,
	})
}

func validationErr(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation failed",
		Code:    apperrors.CodeValidationFailed,
		Details: ToFieldErrors(err),
	})
}
