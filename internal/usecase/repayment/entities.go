package repayment

import (
	"time"

	"sme-escrow/internal/domain/actor"
	domain "sme-escrow/internal/domain/repayment"

	"github.com/shopspring/decimal"
)

type RepayInput struct {
	LoanID string
	Number int
	Actor  actor.Party
	Amount decimal.Decimal
}

type InstallmentDTO struct {
	InstallmentNumber int             `json:"installment_number"`
	DueDate           string          `json:"due_date"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount"`
	InterestAmount    decimal.Decimal `json:"interest_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	Status            string          `json:"status"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
}

type RepaymentDTO struct {
	Reference   string          `json:"reference"`
	LoanID      string          `json:"loan_id"`
	Installment InstallmentDTO  `json:"installment"`
	Amount      decimal.Decimal `json:"amount"`
	LoanStatus  string          `json:"loan_status"`
}

func toDTO(i *domain.Installment) InstallmentDTO {
	return InstallmentDTO{
		InstallmentNumber: i.InstallmentNumber,
		DueDate:           i.DueDate.Format(time.DateOnly),
		PrincipalAmount:   i.PrincipalAmount,
		InterestAmount:    i.InterestAmount,
		TotalAmount:       i.TotalAmount,
		Status:            string(i.Status),
		PaidAt:            i.PaidAt,
	}
}
