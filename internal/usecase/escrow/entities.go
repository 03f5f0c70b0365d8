package escrow

import (
	"context"
	"time"

	"sme-escrow/internal/domain/actor"
	domain "sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/repayment"
	"sme-escrow/internal/domain/uow"

	"github.com/shopspring/decimal"
)

// BankCodes maps a bank name to the code the gateway routes payouts with.
type BankCodes interface {
	CodeFor(ctx context.Context, bankName string) (string, error)
}

// Beneficiaries resolves where an SME wants loan proceeds paid.
type Beneficiaries interface {
	Beneficiary(ctx context.Context, smeID string) (*domain.BankDetails, error)
}

// ScheduleGenerator builds the repayment schedule inside the disbursement commit.
type ScheduleGenerator interface {
	Supports(freq loan.Frequency) bool
	Generate(ctx context.Context, r uow.Repos, l *loan.Application) ([]repayment.Installment, error)
}

type FundingInput struct {
	LoanID     string
	Actor      actor.Party
	Amount     decimal.Decimal
	PayerEmail string
}

type AccountDTO struct {
	EscrowID   string          `json:"escrow_id"`
	LoanID     string          `json:"loan_id"`
	AmountHeld decimal.Decimal `json:"amount_held"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
	ReleasedAt *time.Time      `json:"released_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type FundingDTO struct {
	AuthorizationURL string          `json:"authorization_url"`
	AccessCode       string          `json:"access_code"`
	Reference        string          `json:"reference"`
	EscrowID         string          `json:"escrow_id"`
	Amount           decimal.Decimal `json:"amount"`
}

// VerifyResult reports a funding confirmation. Duplicate means the
// reference had already been settled and nothing changed.
type VerifyResult struct {
	Reference  string          `json:"reference"`
	Duplicate  bool            `json:"duplicate"`
	EscrowID   string          `json:"escrow_id,omitempty"`
	AmountHeld decimal.Decimal `json:"amount_held"`
	Status     string          `json:"escrow_status,omitempty"`
}

type DisbursementDTO struct {
	LoanID        string          `json:"loan_id"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	RecipientCode string          `json:"recipient_code,omitempty"`
	TransferCode  string          `json:"transfer_code,omitempty"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	BankName      string          `json:"bank_name"`
	FailureReason string          `json:"failure_reason,omitempty"`
	InitiatedAt   time.Time       `json:"initiated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

func toAccountDTO(loanID string, a *domain.Account) *AccountDTO {
	return &AccountDTO{
		EscrowID:   a.EscrowID,
		LoanID:     loanID,
		AmountHeld: a.AmountHeld,
		Currency:   a.Currency,
		Status:     string(a.Status),
		ReleasedAt: a.ReleasedAt,
		CreatedAt:  a.CreatedAt,
	}
}

func toDisbursementDTO(loanID string, d *domain.Disbursement) *DisbursementDTO {
	return &DisbursementDTO{
		LoanID:        loanID,
		Reference:     d.Reference,
		Amount:        d.Amount,
		Status:        string(d.Status),
		RecipientCode: d.RecipientCode,
		TransferCode:  d.TransferCode,
		AccountNumber: d.AccountNumber,
		AccountName:   d.AccountName,
		BankName:      d.BankName,
		FailureReason: d.FailureReason,
		InitiatedAt:   d.InitiatedAt,
		CompletedAt:   d.CompletedAt,
	}
}
