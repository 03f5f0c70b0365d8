package mysql

import (
	"context"
	"errors"

	"sme-escrow/internal/domain/escrow"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EscrowRepository struct{ db *gorm.DB }

func NewEscrowRepository(db *gorm.DB) *EscrowRepository { return &EscrowRepository{db: db} }

func (r *EscrowRepository) Create(ctx context.Context, a *escrow.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *EscrowRepository) Save(ctx context.Context, a *escrow.Account) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *EscrowRepository) GetByLoanID(ctx context.Context, loanID uint64) (*escrow.Account, error) {
	var out escrow.Account
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out).Error
	return accountResult(&out, err)
}

func (r *EscrowRepository) GetByLoanIDForUpdate(ctx context.Context, loanID uint64) (*escrow.Account, error) {
	var out escrow.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out).Error
	return accountResult(&out, err)
}

func accountResult(a *escrow.Account, err error) (*escrow.Account, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, escrow.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

type TransactionRepository struct{ db *gorm.DB }

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *escrow.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TransactionRepository) Save(ctx context.Context, t *escrow.Transaction) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*escrow.Transaction, error) {
	var out escrow.Transaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&out).Error
	return transactionResult(&out, err)
}

func (r *TransactionRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*escrow.Transaction, error) {
	var out escrow.Transaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("reference = ?", reference).
		First(&out).Error
	return transactionResult(&out, err)
}

func (r *TransactionRepository) SumCompleted(ctx context.Context, escrowID uint64, typ escrow.TxType) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&escrow.Transaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("escrow_id = ? AND transaction_type = ? AND status = ?", escrowID, typ, escrow.TxCompleted).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func (r *TransactionRepository) ListByLoan(ctx context.Context, loanID uint64) ([]escrow.Transaction, error) {
	var out []escrow.Transaction
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("initiated_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

func transactionResult(t *escrow.Transaction, err error) (*escrow.Transaction, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, escrow.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

type DisbursementRepository struct{ db *gorm.DB }

func NewDisbursementRepository(db *gorm.DB) *DisbursementRepository {
	return &DisbursementRepository{db: db}
}

func (r *DisbursementRepository) Create(ctx context.Context, d *escrow.Disbursement) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DisbursementRepository) Save(ctx context.Context, d *escrow.Disbursement) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *DisbursementRepository) GetByLoanID(ctx context.Context, loanID uint64) (*escrow.Disbursement, error) {
	var out escrow.Disbursement
	err := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, escrow.ErrDisbursementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
