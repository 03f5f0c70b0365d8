package repayment

import (
	"context"
	"time"
)

type Repository interface {
	CreateBatch(ctx context.Context, items []Installment) error
	Save(ctx context.Context, i *Installment) error
	DeleteByLoan(ctx context.Context, loanID uint64) (int64, error)
	ListByLoan(ctx context.Context, loanID uint64) ([]Installment, error)
	GetByNumberForUpdate(ctx context.Context, loanID uint64, number int) (*Installment, error)
	CountUnpaid(ctx context.Context, loanID uint64) (int64, error)
	// MarkOverdue flips pending installments due before cutoff.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error)
}
