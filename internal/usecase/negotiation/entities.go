package negotiation

import (
	"time"

	"sme-escrow/internal/domain/actor"
	domain "sme-escrow/internal/domain/negotiation"

	"github.com/shopspring/decimal"
)

type CreateOfferInput struct {
	LoanID  string
	Actor   actor.Party
	Rate    decimal.Decimal
	Message string
}

type RespondInput struct {
	OfferID string
	Actor   actor.Party
}

type CounterInput struct {
	OfferID string
	Actor   actor.Party
	Rate    decimal.Decimal
	Message string
}

type OfferDTO struct {
	OfferID       string          `json:"offer_id"`
	LoanID        string          `json:"loan_id"`
	LenderID      string          `json:"lender_id"`
	ProposerType  string          `json:"proposer_type"`
	ProposerID    string          `json:"proposer_id"`
	ParentOfferID string          `json:"parent_offer_id,omitempty"`
	ProposedRate  decimal.Decimal `json:"proposed_rate"`
	Message       string          `json:"message"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toDTO(loanID string, o *domain.Offer) *OfferDTO {
	dto := &OfferDTO{
		OfferID:      o.OfferID,
		LoanID:       loanID,
		LenderID:     o.LenderID,
		ProposerType: string(o.ProposerType),
		ProposerID:   o.ProposerID,
		ProposedRate: o.ProposedRate,
		Message:      o.Message,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
	}
	if o.ParentOfferID != nil {
		dto.ParentOfferID = *o.ParentOfferID
	}
	return dto
}
