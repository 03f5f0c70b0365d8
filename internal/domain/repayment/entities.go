package repayment

import (
	"fmt"
	"time"

	"sme-escrow/internal/domain/errs"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

var ErrNotFound = fmt.Errorf("installment %w", errs.ErrNotFound)

// Installment is one scheduled repayment of principal plus interest.
type Installment struct {
	ID                uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID            uint64          `gorm:"not null;uniqueIndex:ux_repayment_schedules_loan_number,priority:1" json:"-"`
	InstallmentNumber int             `gorm:"not null;uniqueIndex:ux_repayment_schedules_loan_number,priority:2" json:"installment_number"`
	DueDate           time.Time       `gorm:"type:date;not null;index:idx_repayment_schedules_due" json:"due_date"`
	PrincipalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"principal_amount"`
	InterestAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"interest_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Status            Status          `gorm:"size:20;not null;default:'pending'" json:"status"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Installment) TableName() string { return "repayment_schedules" }

// Payable reports whether the installment still awaits payment.
func (i *Installment) Payable() bool { return i.Status == StatusPending || i.Status == StatusOverdue }
