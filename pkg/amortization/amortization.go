package amortization

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinTermMonths = 1
	MaxTermMonths = 360
	MaxRatePct    = 50
)

var (
	ErrInvalidPrincipal = errors.New("principal must be greater than zero")
	ErrInvalidRate      = errors.New("annual interest rate must be in (0, 50] percent")
	ErrInvalidTerm      = errors.New("term must be between 1 and 360 months")
)

// Entry is one period of an amortization schedule. All money values are
// rounded half-up to 2 decimal places independently per period.
type Entry struct {
	Period           int             `json:"period"`
	PaymentDate      time.Time       `json:"payment_date"`
	BeginningBalance decimal.Decimal `json:"beginning_balance"`
	Payment          decimal.Decimal `json:"payment"`
	Principal        decimal.Decimal `json:"principal"`
	Interest         decimal.Decimal `json:"interest"`
	EndingBalance    decimal.Decimal `json:"ending_balance"`
}

func validate(principal decimal.Decimal, annualRatePct decimal.Decimal, termMonths int) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidPrincipal
	}
	if annualRatePct.LessThanOrEqual(decimal.Zero) || annualRatePct.GreaterThan(decimal.NewFromInt(MaxRatePct)) {
		return ErrInvalidRate
	}
	if termMonths < MinTermMonths || termMonths > MaxTermMonths {
		return ErrInvalidTerm
	}
	return nil
}

// MonthlyPayment computes the level annuity payment
//
//	M = P * i * (1+i)^n / ((1+i)^n - 1),  i = rate/100/12
//
// rounded half-up to 2 decimal places. A rate that is effectively zero
// degenerates to P/n. float64 is used only for the power term; monetary
// arithmetic stays in decimal.
func MonthlyPayment(principal decimal.Decimal, annualRatePct decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validate(principal, annualRatePct, termMonths); err != nil {
		return decimal.Zero, err
	}

	monthlyRate := monthlyRateOf(annualRatePct)
	if monthlyRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2), nil
	}

	i := monthlyRate.InexactFloat64()
	factor := math.Pow(1+i, float64(termMonths))
	payment := principal.InexactFloat64() * i * factor / (factor - 1)
	return decimal.NewFromFloat(payment).Round(2), nil
}

// Schedule generates the full period-by-period breakdown for the loan.
// Interest and principal are rounded per period without a final-period
// balancing plug, so the last ending balance may carry a few minor units of
// rounding drift; callers treat anything within one minor unit as settled.
func Schedule(principal decimal.Decimal, annualRatePct decimal.Decimal, termMonths int, startDate time.Time) ([]Entry, error) {
	payment, err := MonthlyPayment(principal, annualRatePct, termMonths)
	if err != nil {
		return nil, err
	}

	monthlyRate := monthlyRateOf(annualRatePct)
	entries := make([]Entry, 0, termMonths)
	balance := principal

	for period := 1; period <= termMonths; period++ {
		interest := balance.Mul(monthlyRate).Round(2)
		principalPart := payment.Sub(interest)
		ending := balance.Sub(principalPart).Round(2)

		entries = append(entries, Entry{
			Period:           period,
			PaymentDate:      startDate.AddDate(0, period, 0),
			BeginningBalance: balance.Round(2),
			Payment:          payment,
			Principal:        principalPart,
			Interest:         interest,
			EndingBalance:    ending,
		})

		balance = ending
	}

	return entries, nil
}

func monthlyRateOf(annualRatePct decimal.Decimal) decimal.Decimal {
	return annualRatePct.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(12))
}
