package uowmock

import (
	"context"
	"errors"

	"sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/uow"
)

var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Unset methods return errUnimplemented.
type UoW struct {
	WithinTxFn            func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn        func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Application) error) error
	WithinTransactionTxFn func(ctx context.Context, reference string, fn func(r uow.Repos, t *escrow.Transaction) error) error
}

func New() *UoW { return &UoW{} }

// Passthrough runs every callback directly against repos, resolving locked
// rows through them. No rollback happens on error.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(repos) },
		WithinLoanTxFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.Application) error) error {
			l, err := repos.Loans.GetByLoanIDForUpdate(ctx, loanID)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
		WithinTransactionTxFn: func(ctx context.Context, ref string, fn func(uow.Repos, *escrow.Transaction) error) error {
			t, err := repos.Transactions.GetByReferenceForUpdate(ctx, ref)
			if err != nil {
				return err
			}
			return fn(repos, t)
		},
	}
}

func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}

func (m *UoW) WithWithinLoanTx(fn func(context.Context, string, func(uow.Repos, *loan.Application) error) error) *UoW {
	m.WithinLoanTxFn = fn
	return m
}

func (m *UoW) WithWithinTransactionTx(fn func(context.Context, string, func(uow.Repos, *escrow.Transaction) error) error) *UoW {
	m.WithinTransactionTxFn = fn
	return m
}

func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Application) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinTransactionTx(ctx context.Context, reference string, fn func(r uow.Repos, t *escrow.Transaction) error) error {
	if m.WithinTransactionTxFn != nil {
		return m.WithinTransactionTxFn(ctx, reference, fn)
	}
	return errUnimplemented
}
