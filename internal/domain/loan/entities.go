package loan

import (
	"fmt"
	"time"

	"sme-escrow/internal/domain/errs"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusDisbursed   Status = "disbursed"
	StatusActive      Status = "active"
	StatusCompleted   Status = "completed"
	StatusDefaulted   Status = "defaulted"
)

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyBullet    Frequency = "bullet"
)

const DefaultCurrency = "NGN"

var (
	ErrNotFound = fmt.Errorf("loan application %w", errs.ErrNotFound)

	// MaxAmount keeps a bullet installment (principal plus at most 250%
	// interest) inside the DECIMAL(12,2) money columns.
	MaxAmount = decimal.NewFromInt(1_000_000_000)

	maxRate   = decimal.NewFromInt(50)
	minTenure = 1
	maxTenure = 60
)

// Application is a funding request owned by one SME.
type Application struct {
	ID               uint64              `gorm:"primaryKey;column:id" json:"-"`
	LoanID           string              `gorm:"size:32;uniqueIndex:ux_loan_applications_loan_id;not null" json:"loan_id"`
	SMEID            string              `gorm:"column:sme_id;size:32;index:idx_loan_applications_sme;not null" json:"sme_id"`
	LenderID         *string             `gorm:"size:32;index:idx_loan_applications_lender" json:"lender_id,omitempty"`
	Amount           decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency         string              `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	InterestRate     decimal.Decimal     `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	NegotiatedRate   decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"negotiated_rate"`
	TenureMonths     int                 `gorm:"not null" json:"tenure_months"`
	Purpose          string              `gorm:"type:text" json:"purpose"`
	Frequency        Frequency           `gorm:"column:repayment_frequency;size:20;not null;default:'monthly'" json:"repayment_frequency"`
	Status           Status              `gorm:"size:20;not null;default:'draft';index:idx_loan_applications_status" json:"status"`
	ApprovalDate     *time.Time          `json:"approval_date,omitempty"`
	DisbursementDate *time.Time          `json:"disbursement_date,omitempty"`
	CompletionDate   *time.Time          `json:"completion_date,omitempty"`
	CreatedAt        time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "loan_applications" }

// Negotiable reports whether offers may still be exchanged on the loan.
func (a *Application) Negotiable() bool {
	switch a.Status {
	case StatusDraft, StatusSubmitted, StatusUnderReview:
		return true
	}
	return false
}

// HasLender reports whether a lender is assigned (by pitch or acceptance).
func (a *Application) HasLender() bool { return a.LenderID != nil && *a.LenderID != "" }

func (a *Application) AssignedTo(lenderID string) bool {
	return a.HasLender() && *a.LenderID == lenderID
}

// EffectiveRate is the agreed rate once negotiation closes, else the requested one.
func (a *Application) EffectiveRate() decimal.Decimal {
	if a.NegotiatedRate.Valid {
		return a.NegotiatedRate.Decimal
	}
	return a.InterestRate
}

// ValidateTerms checks the requested terms of an application.
func ValidateTerms(amount, rate decimal.Decimal, tenure int, freq Frequency) error {
	if !amount.IsPositive() {
		return errs.Invalid("amount", "must be greater than 0")
	}
	if amount.GreaterThan(MaxAmount) {
		return errs.Invalid("amount", "must be at most "+MaxAmount.StringFixed(2))
	}
	if !amount.Equal(amount.Round(2)) {
		return errs.Invalid("amount", "must have at most 2 decimal places")
	}
	if err := ValidateRate("interest_rate", rate); err != nil {
		return err
	}
	if tenure < minTenure || tenure > maxTenure {
		return errs.Invalid("tenure_months", fmt.Sprintf("must be between %d and %d", minTenure, maxTenure))
	}
	switch freq {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyBullet:
	default:
		return errs.Invalid("repayment_frequency", "must be one of monthly, quarterly, bullet")
	}
	return nil
}

// ValidateRate enforces a percentage in [0, 50] with at most 2 decimals.
func ValidateRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxRate) {
		return errs.Invalid(field, "must be between 0 and 50")
	}
	if !rate.Equal(rate.Round(2)) {
		return errs.Invalid(field, "must have at most 2 decimal places")
	}
	return nil
}
