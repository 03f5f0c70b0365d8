package mysql

import (
	"context"

	"sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/uow"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:         &LoanRepository{db: tx},
		Offers:        &OfferRepository{db: tx},
		Escrows:       &EscrowRepository{db: tx},
		Transactions:  &TransactionRepository{db: tx},
		Disbursements: &DisbursementRepository{db: tx},
		Installments:  &RepaymentRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinTransactionTx(ctx context.Context, reference string, fn func(r uow.Repos, t *escrow.Transaction) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// concurrent confirmations of one reference queue up here
		t, err := r.Transactions.GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		return fn(r, t)
	})
}
