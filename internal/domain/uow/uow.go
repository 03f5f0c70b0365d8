package uow

import (
	"context"

	"sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/negotiation"
	"sme-escrow/internal/domain/repayment"
)

// Repos are bound to one database transaction.
type Repos struct {
	Loans         loan.Repository
	Offers        negotiation.Repository
	Escrows       escrow.AccountRepository
	Transactions  escrow.TransactionRepository
	Disbursements escrow.DisbursementRepository
	Installments  repayment.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx locks the loan application row before calling fn.
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Application) error) error
	// WithinTransactionTx locks the ledger entry with the given reference before calling fn.
	WithinTransactionTx(ctx context.Context, reference string, fn func(r Repos, t *escrow.Transaction) error) error
}
