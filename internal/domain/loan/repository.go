package loan

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, a *Application) error
	Save(ctx context.Context, a *Application) error
	GetByLoanID(ctx context.Context, loanID string) (*Application, error)
	// GetByLoanIDForUpdate locks the row for the rest of the enclosing tx.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Application, error)
	GetByID(ctx context.Context, id uint64) (*Application, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (*Application, error)
}
