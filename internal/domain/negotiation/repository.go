package negotiation

import "context"

type Repository interface {
	Create(ctx context.Context, o *Offer) error
	Save(ctx context.Context, o *Offer) error
	GetByOfferID(ctx context.Context, offerID string) (*Offer, error)
	// ListByLoan returns the thread ordered by creation time.
	ListByLoan(ctx context.Context, loanID uint64) ([]Offer, error)
	// LatestInLane returns the newest offer between the loan and one lender.
	LatestInLane(ctx context.Context, loanID uint64, lenderID string) (*Offer, error)
	// RejectPendingExcept flips every other pending offer on the loan to rejected.
	RejectPendingExcept(ctx context.Context, loanID uint64, keepID uint64) (int64, error)
	CountByStatus(ctx context.Context, loanID uint64, status Status) (int64, error)
}
