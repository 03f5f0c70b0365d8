package mysql

import (
	"context"
	"errors"

	"sme-escrow/internal/domain/negotiation"

	"gorm.io/gorm"
)

type OfferRepository struct{ db *gorm.DB }

func NewOfferRepository(db *gorm.DB) *OfferRepository { return &OfferRepository{db: db} }

func (r *OfferRepository) Create(ctx context.Context, o *negotiation.Offer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OfferRepository) Save(ctx context.Context, o *negotiation.Offer) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *OfferRepository) GetByOfferID(ctx context.Context, offerID string) (*negotiation.Offer, error) {
	var out negotiation.Offer
	err := r.db.WithContext(ctx).Where("offer_id = ?", offerID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, negotiation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OfferRepository) ListByLoan(ctx context.Context, loanID uint64) ([]negotiation.Offer, error) {
	var out []negotiation.Offer
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// LatestInLane returns (nil, nil) when the lender has not negotiated yet.
func (r *OfferRepository) LatestInLane(ctx context.Context, loanID uint64, lenderID string) (*negotiation.Offer, error) {
	var out negotiation.Offer
	err := r.db.WithContext(ctx).
		Where("loan_id = ? AND lender_id = ?", loanID, lenderID).
		Order("id DESC").
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *OfferRepository) RejectPendingExcept(ctx context.Context, loanID uint64, keepID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&negotiation.Offer{}).
		Where("loan_id = ? AND status = ? AND id <> ?", loanID, negotiation.StatusPending, keepID).
		Update("status", negotiation.StatusRejected)
	return res.RowsAffected, res.Error
}

func (r *OfferRepository) CountByStatus(ctx context.Context, loanID uint64, status negotiation.Status) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&negotiation.Offer{}).
		Where("loan_id = ? AND status = ?", loanID, status).
		Count(&n).Error
	return n, err
}
