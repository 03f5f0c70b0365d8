package loan

import (
	"time"

	"sme-escrow/internal/domain/actor"
	domain "sme-escrow/internal/domain/loan"

	"github.com/shopspring/decimal"
)

type CreateLoanInput struct {
	Actor        actor.Party
	Amount       decimal.Decimal
	Currency     string
	InterestRate decimal.Decimal
	TenureMonths int
	Purpose      string
	Frequency    domain.Frequency
}

type PitchInput struct {
	LoanID   string
	Actor    actor.Party
	LenderID string
}

type RejectInput struct {
	LoanID string
	Actor  actor.Party
}

type LoanDTO struct {
	LoanID           string              `json:"loan_id"`
	SMEID            string              `json:"sme_id"`
	LenderID         string              `json:"lender_id,omitempty"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	InterestRate     decimal.Decimal     `json:"interest_rate"`
	NegotiatedRate   decimal.NullDecimal `json:"negotiated_rate"`
	TenureMonths     int                 `json:"tenure_months"`
	Purpose          string              `json:"purpose"`
	Frequency        string              `json:"repayment_frequency"`
	Status           string              `json:"status"`
	ApprovalDate     *time.Time          `json:"approval_date,omitempty"`
	DisbursementDate *time.Time          `json:"disbursement_date,omitempty"`
	CompletionDate   *time.Time          `json:"completion_date,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

func toDTO(a *domain.Application) *LoanDTO {
	dto := &LoanDTO{
		LoanID:           a.LoanID,
		SMEID:            a.SMEID,
		Amount:           a.Amount,
		Currency:         a.Currency,
		InterestRate:     a.InterestRate,
		NegotiatedRate:   a.NegotiatedRate,
		TenureMonths:     a.TenureMonths,
		Purpose:          a.Purpose,
		Frequency:        string(a.Frequency),
		Status:           string(a.Status),
		ApprovalDate:     a.ApprovalDate,
		DisbursementDate: a.DisbursementDate,
		CompletionDate:   a.CompletionDate,
		CreatedAt:        a.CreatedAt,
	}
	if a.HasLender() {
		dto.LenderID = *a.LenderID
	}
	return dto
}
