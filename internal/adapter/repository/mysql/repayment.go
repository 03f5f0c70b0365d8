package mysql

import (
	"context"
	"errors"
	"time"

	"sme-escrow/internal/domain/repayment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepaymentRepository struct{ db *gorm.DB }

func NewRepaymentRepository(db *gorm.DB) *RepaymentRepository { return &RepaymentRepository{db: db} }

func (r *RepaymentRepository) CreateBatch(ctx context.Context, items []repayment.Installment) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *RepaymentRepository) Save(ctx context.Context, i *repayment.Installment) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *RepaymentRepository) DeleteByLoan(ctx context.Context, loanID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).Delete(&repayment.Installment{})
	return res.RowsAffected, res.Error
}

func (r *RepaymentRepository) ListByLoan(ctx context.Context, loanID uint64) ([]repayment.Installment, error) {
	var out []repayment.Installment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("installment_number ASC").
		Find(&out).Error
	return out, err
}

func (r *RepaymentRepository) GetByNumberForUpdate(ctx context.Context, loanID uint64, number int) (*repayment.Installment, error) {
	var out repayment.Installment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ? AND installment_number = ?", loanID, number).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repayment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RepaymentRepository) CountUnpaid(ctx context.Context, loanID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&repayment.Installment{}).
		Where("loan_id = ? AND status <> ?", loanID, repayment.StatusPaid).
		Count(&n).Error
	return n, err
}

func (r *RepaymentRepository) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&repayment.Installment{}).
		Where("status = ? AND due_date < ?", repayment.StatusPending, cutoff).
		Update("status", repayment.StatusOverdue)
	return res.RowsAffected, res.Error
}
