package escrow

import (
	"context"

	"github.com/shopspring/decimal"
)

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	Save(ctx context.Context, a *Account) error
	GetByLoanID(ctx context.Context, loanID uint64) (*Account, error)
	GetByLoanIDForUpdate(ctx context.Context, loanID uint64) (*Account, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	Save(ctx context.Context, t *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	GetByReferenceForUpdate(ctx context.Context, reference string) (*Transaction, error)
	// SumCompleted totals completed entries of one type for an escrow account.
	SumCompleted(ctx context.Context, escrowID uint64, typ TxType) (decimal.Decimal, error)
	ListByLoan(ctx context.Context, loanID uint64) ([]Transaction, error)
}

type DisbursementRepository interface {
	Create(ctx context.Context, d *Disbursement) error
	Save(ctx context.Context, d *Disbursement) error
	GetByLoanID(ctx context.Context, loanID uint64) (*Disbursement, error)
}
