package id

import (
	"strings"

	"github.com/google/uuid"
)

// Ledger reference prefixes.
const (
	PrefixEscrowFunding = "ESCROW"
	PrefixDisbursement  = "DISB"
	PrefixRepayment     = "REPAY"
)

// NewID32 returns a random v4 UUID as 32 lowercase hex characters.
func NewID32() string {
	u := uuid.New()
	return strings.ReplaceAll(u.String(), "-", "")
}

// NewReference returns PREFIX_ followed by 16 uppercase hex characters.
// References travel to the payment gateway and must never repeat.
func NewReference(prefix string) string {
	return prefix + "_" + strings.ToUpper(NewID32()[:16])
}

// NewEscrowID returns ESC followed by 8 uppercase hex characters.
func NewEscrowID() string {
	return "ESC" + strings.ToUpper(NewID32()[:8])
}
