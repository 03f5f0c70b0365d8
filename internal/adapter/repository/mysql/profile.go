package mysql

import (
	"context"
	"errors"
	"fmt"

	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/domain/escrow"

	"gorm.io/gorm"
)

// businessProfile is the slice of the profile service's table this service
// reads. The table is owned elsewhere and never written from here.
type businessProfile struct {
	SMEID             string `gorm:"column:sme_id;size:32;primaryKey"`
	BusinessName      string `gorm:"size:200"`
	BankAccountNumber string `gorm:"size:20"`
	BankAccountName   string `gorm:"size:200"`
	BankName          string `gorm:"size:100"`
}

func (businessProfile) TableName() string { return "business_profiles" }

var ErrProfileNotFound = fmt.Errorf("business profile %w", errs.ErrNotFound)

type ProfileReader struct{ db *gorm.DB }

func NewProfileReader(db *gorm.DB) *ProfileReader { return &ProfileReader{db: db} }

// Beneficiary returns the payout bank details registered by the SME.
func (r *ProfileReader) Beneficiary(ctx context.Context, smeID string) (*escrow.BankDetails, error) {
	var p businessProfile
	err := r.db.WithContext(ctx).Where("sme_id = ?", smeID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	name := p.BankAccountName
	if name == "" {
		name = p.BusinessName
	}
	return &escrow.BankDetails{
		AccountNumber: p.BankAccountNumber,
		AccountName:   name,
		BankName:      p.BankName,
	}, nil
}
