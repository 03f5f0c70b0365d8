// Package dbtest opens throwaway SQLite databases carrying the ledger schema.
package dbtest

import (
	"testing"

	"sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/negotiation"
	"sme-escrow/internal/domain/repayment"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const profilesDDL = `CREATE TABLE business_profiles (
	sme_id VARCHAR(32) PRIMARY KEY,
	business_name VARCHAR(200),
	bank_account_number VARCHAR(20),
	bank_account_name VARCHAR(200),
	bank_name VARCHAR(100)
)`

// Open returns an in-memory database with every ledger table migrated.
// SQLite ignores FOR UPDATE; the single connection serializes access instead.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&loan.Application{},
		&negotiation.Offer{},
		&escrow.Account{},
		&escrow.Transaction{},
		&escrow.Disbursement{},
		&repayment.Installment{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	if err := db.Exec(profilesDDL).Error; err != nil {
		t.Fatalf("create business_profiles: %v", err)
	}
	return db
}

// SeedProfile registers payout bank details for an SME.
func SeedProfile(t *testing.T, db *gorm.DB, smeID, accountNumber, accountName, bankName string) {
	t.Helper()
	err := db.Exec(
		"INSERT INTO business_profiles (sme_id, business_name, bank_account_number, bank_account_name, bank_name) VALUES (?, ?, ?, ?, ?)",
		smeID, accountName, accountNumber, accountName, bankName,
	).Error
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}
