package offermock

import (
	"context"

	domain "sme-escrow/internal/domain/negotiation"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn              func(ctx context.Context, o *domain.Offer) error
	SaveFn                func(ctx context.Context, o *domain.Offer) error
	GetByOfferIDFn        func(ctx context.Context, offerID string) (*domain.Offer, error)
	ListByLoanFn          func(ctx context.Context, loanID uint64) ([]domain.Offer, error)
	LatestInLaneFn        func(ctx context.Context, loanID uint64, lenderID string) (*domain.Offer, error)
	RejectPendingExceptFn func(ctx context.Context, loanID, keepID uint64) (int64, error)
	CountByStatusFn       func(ctx context.Context, loanID uint64, status domain.Status) (int64, error)
}

func (m *Repo) Create(ctx context.Context, o *domain.Offer) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, o)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, o *domain.Offer) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, o)
	}
	return nil
}

func (m *Repo) GetByOfferID(ctx context.Context, offerID string) (*domain.Offer, error) {
	if m.GetByOfferIDFn != nil {
		return m.GetByOfferIDFn(ctx, offerID)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByLoan(ctx context.Context, loanID uint64) ([]domain.Offer, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, nil
}

func (m *Repo) LatestInLane(ctx context.Context, loanID uint64, lenderID string) (*domain.Offer, error) {
	if m.LatestInLaneFn != nil {
		return m.LatestInLaneFn(ctx, loanID, lenderID)
	}
	return nil, nil
}

func (m *Repo) RejectPendingExcept(ctx context.Context, loanID, keepID uint64) (int64, error) {
	if m.RejectPendingExceptFn != nil {
		return m.RejectPendingExceptFn(ctx, loanID, keepID)
	}
	return 0, nil
}

func (m *Repo) CountByStatus(ctx context.Context, loanID uint64, status domain.Status) (int64, error) {
	if m.CountByStatusFn != nil {
		return m.CountByStatusFn(ctx, loanID, status)
	}
	return 0, nil
}
