package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDefaulted Status = "defaulted"
)

type Type string

const (
	TypePersonal  Type = "personal"
	TypeHome      Type = "home"
	TypeCar       Type = "car"
	TypeBusiness  Type = "business"
	TypeEducation Type = "education"
)

var (
	ErrNotFound          = errors.New("loan not found")
	ErrInvalidTransition = errors.New("invalid loan status transition")
)

type Loan struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID         string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"loan_id"`
	AccountNumber  string          `gorm:"size:32;uniqueIndex:ux_loans_account_number_active" json:"account_number"`
	UserID         string          `gorm:"size:32;index:idx_loans_user_active" json:"user_id"`
	CreatedBy      string          `gorm:"size:32" json:"created_by"`
	LoanType       Type            `gorm:"size:16" json:"loan_type"`
	Principal      decimal.Decimal `gorm:"type:decimal(18,2)" json:"principal"`
	InterestRate   decimal.Decimal `gorm:"type:decimal(6,3)" json:"interest_rate"`
	TermMonths     int             `json:"term_months"`
	StartDate      time.Time       `gorm:"type:date" json:"start_date"`
	EndDate        time.Time       `gorm:"type:date" json:"end_date"`
	MonthlyPayment decimal.Decimal `gorm:"type:decimal(18,2)" json:"monthly_payment"`
	// RemainingBalance is mutated only through the ledger's apply step.
	RemainingBalance decimal.Decimal `gorm:"type:decimal(18,2)" json:"remaining_balance"`
	Status           Status          `gorm:"type:enum('pending','approved','rejected','active','completed','defaulted');default:'pending'" json:"status"`
	Purpose          string          `gorm:"type:text" json:"purpose,omitempty"`
	Description      string          `gorm:"type:text" json:"description,omitempty"`
	Remarks          string          `gorm:"type:text" json:"remarks,omitempty"`
	StatusUpdatedAt  time.Time       `gorm:"autoCreateTime" json:"status_updated_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
	DeletedBy        string          `gorm:"size:32" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// Open reports whether transactions may post against the loan.
func (l *Loan) Open() bool {
	return l.Status == StatusApproved || l.Status == StatusActive
}

// adminTransitions are the direct field transitions an administrator may
// trigger. Balance-driven transitions (approved→active on first payment,
// active→completed at zero balance) belong to the ledger and are not listed.
var adminTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusActive, StatusRejected},
	StatusActive:    {StatusDefaulted, StatusCompleted},
	StatusDefaulted: {StatusActive},
}

// CanTransition reports whether an administrator may move the loan from its
// current status to target.
func (l *Loan) CanTransition(target Status) bool {
	for _, s := range adminTransitions[l.Status] {
		if s == target {
			return true
		}
	}
	return false
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusActive, StatusCompleted, StatusDefaulted:
		return true
	}
	return false
}

func ValidType(t Type) bool {
	switch t {
	case TypePersonal, TypeHome, TypeCar, TypeBusiness, TypeEducation:
		return true
	}
	return false
}
