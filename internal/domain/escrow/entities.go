package escrow

import (
	"fmt"
	"time"

	"sme-escrow/internal/domain/errs"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusReleased Status = "released"
	StatusRefunded Status = "refunded"
	StatusDisputed Status = "disputed"
)

type TxType string

const (
	TxFundEscrow TxType = "fund_escrow"
	TxDisburse   TxType = "disburse"
	TxRepayment  TxType = "repayment"
	TxInterest   TxType = "interest"
	TxFee        TxType = "fee"
	TxRefund     TxType = "refund"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

type DisbursementStatus string

const (
	DisbursementPending    DisbursementStatus = "pending"
	DisbursementProcessing DisbursementStatus = "processing"
	DisbursementCompleted  DisbursementStatus = "completed"
	DisbursementFailed     DisbursementStatus = "failed"
)

var (
	ErrAccountNotFound      = fmt.Errorf("escrow account %w", errs.ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", errs.ErrNotFound)
	ErrDisbursementNotFound = fmt.Errorf("disbursement %w", errs.ErrNotFound)
)

// Account holds lender funds for one loan until disbursement.
type Account struct {
	ID         uint64          `gorm:"primaryKey;column:id" json:"-"`
	EscrowID   string          `gorm:"size:16;uniqueIndex:ux_escrow_accounts_escrow_id;not null" json:"escrow_id"`
	LoanID     uint64          `gorm:"uniqueIndex:ux_escrow_accounts_loan_id;not null" json:"-"`
	AmountHeld decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0;check:chk_escrow_amount_held,amount_held >= 0" json:"amount_held"`
	Currency   string          `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	Status     Status          `gorm:"size:20;not null;default:'pending'" json:"status"`
	ReleasedAt *time.Time      `json:"released_at,omitempty"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string { return "escrow_accounts" }

// Funded reports whether money has already landed in the account.
func (a *Account) Funded() bool { return a.Status == StatusActive || a.Status == StatusReleased }

// Transaction is a ledger entry. Only its status and completion fields move,
// and only away from pending.
type Transaction struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	Reference       string          `gorm:"size:64;uniqueIndex:ux_escrow_transactions_reference;not null" json:"reference"`
	EscrowID        uint64          `gorm:"not null;index:idx_escrow_transactions_escrow_type,priority:1" json:"-"`
	LoanID          uint64          `gorm:"not null;index:idx_escrow_transactions_loan" json:"-"`
	InstallmentID   *uint64         `json:"-"`
	Type            TxType          `gorm:"column:transaction_type;size:20;not null;index:idx_escrow_transactions_escrow_type,priority:2" json:"transaction_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency        string          `gorm:"size:3;not null;default:'NGN'" json:"currency"`
	Status          TxStatus        `gorm:"size:20;not null;default:'pending'" json:"status"`
	GatewayResponse datatypes.JSON  `json:"gateway_response,omitempty"`
	Description     string          `gorm:"type:text" json:"description"`
	InitiatedAt     time.Time       `gorm:"autoCreateTime" json:"initiated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

func (Transaction) TableName() string { return "escrow_transactions" }

// Finalize moves a pending transaction to a terminal status.
func (t *Transaction) Finalize(to TxStatus, payload []byte, at time.Time) error {
	if t.Status != TxPending {
		return fmt.Errorf("transaction %s is %s: %w", t.Reference, t.Status, errs.ErrInvalidTransition)
	}
	switch to {
	case TxCompleted, TxFailed, TxCancelled:
	default:
		return fmt.Errorf("transaction %s cannot move to %s: %w", t.Reference, to, errs.ErrInvalidTransition)
	}
	t.Status = to
	if len(payload) > 0 {
		t.GatewayResponse = datatypes.JSON(payload)
	}
	at = at.UTC()
	t.CompletedAt = &at
	return nil
}

// Disbursement is the single payout of escrowed funds to the SME.
type Disbursement struct {
	ID            uint64             `gorm:"primaryKey;column:id" json:"-"`
	LoanID        uint64             `gorm:"uniqueIndex:ux_disbursements_loan_id;not null" json:"-"`
	EscrowID      uint64             `gorm:"not null" json:"-"`
	Amount        decimal.Decimal    `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reference     string             `gorm:"size:64;uniqueIndex:ux_disbursements_reference;not null" json:"reference"`
	RecipientCode string             `gorm:"size:64" json:"recipient_code,omitempty"`
	TransferCode  string             `gorm:"size:64" json:"transfer_code,omitempty"`
	AccountNumber string             `gorm:"size:20;not null" json:"account_number"`
	AccountName   string             `gorm:"size:200;not null" json:"account_name"`
	BankName      string             `gorm:"size:100;not null" json:"bank_name"`
	Status        DisbursementStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	FailureReason string             `gorm:"type:text" json:"failure_reason,omitempty"`
	InitiatedAt   time.Time          `gorm:"autoCreateTime" json:"initiated_at"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Disbursement) TableName() string { return "disbursements" }

// InFlight reports whether a payout is running or already done.
func (d *Disbursement) InFlight() bool {
	return d.Status == DisbursementProcessing || d.Status == DisbursementCompleted
}

// BankDetails is the payout beneficiary taken from the SME business profile.
type BankDetails struct {
	AccountNumber string
	AccountName   string
	BankName      string
}

func (b BankDetails) Validate() error {
	if b.AccountNumber == "" {
		return errs.Invalid("bank_account_number", "missing on business profile")
	}
	if b.AccountName == "" {
		return errs.Invalid("bank_account_name", "missing on business profile")
	}
	if b.BankName == "" {
		return errs.Invalid("bank_name", "missing on business profile")
	}
	return nil
}

// Balance folds completed ledger entries into the amount an escrow holds.
func Balance(funded, disbursed decimal.Decimal) decimal.Decimal {
	return funded.Sub(disbursed).Round(2)
}
