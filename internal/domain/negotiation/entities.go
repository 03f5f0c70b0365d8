package negotiation

import (
	"fmt"
	"time"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCountered Status = "countered"
)

var ErrNotFound = fmt.Errorf("offer %w", errs.ErrNotFound)

const MaxMessageLen = 2000

// Offer is one entry of a loan's negotiation thread. Every offer belongs to
// the lane of one lender: its own offers and the SME's counters to them.
type Offer struct {
	ID            uint64          `gorm:"primaryKey;column:id" json:"-"`
	OfferID       string          `gorm:"size:32;uniqueIndex:ux_loan_negotiations_offer_id;not null" json:"offer_id"`
	LoanID        uint64          `gorm:"not null;index:idx_loan_negotiations_loan_status,priority:1" json:"-"`
	LenderID      string          `gorm:"size:32;not null;index:idx_loan_negotiations_lender" json:"lender_id"`
	ProposerType  actor.Kind      `gorm:"size:10;not null" json:"proposer_type"`
	ProposerID    string          `gorm:"size:32;not null" json:"proposer_id"`
	ParentOfferID *string         `gorm:"size:32" json:"parent_offer_id,omitempty"`
	ProposedRate  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"proposed_rate"`
	Message       string          `gorm:"type:text" json:"message"`
	Status        Status          `gorm:"size:20;not null;default:'pending';index:idx_loan_negotiations_loan_status,priority:2" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Offer) TableName() string { return "loan_negotiations" }

func (o *Offer) Proposer() actor.Party {
	return actor.Party{Kind: o.ProposerType, ProfileID: o.ProposerID}
}

func (o *Offer) ByLender() bool { return o.ProposerType == actor.KindLender }

func (o *Offer) Pending() bool { return o.Status == StatusPending }
