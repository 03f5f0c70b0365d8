package negotiation

import (
	"fmt"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/domain/loan"
	domain "sme-escrow/internal/domain/negotiation"
)

type action string

const (
	actCreate  action = "create"
	actCounter action = "counter"
	actAccept  action = "accept"
	actReject  action = "reject"
	actView    action = "view"
)

// authorize is the only place permission and turn-taking rules live.
// target is the offer being acted on (nil for create/view); latest is the
// newest offer in the acting lender's lane (create only, may be nil).
func authorize(act action, p actor.Party, l *loan.Application, target, latest *domain.Offer) error {
	switch act {
	case actView:
		if p.IsSME() && l.SMEID == p.ProfileID {
			return nil
		}
		if p.IsLender() {
			return nil
		}
		return fmt.Errorf("%s cannot view this thread: %w", p.Kind, errs.ErrForbidden)

	case actCreate:
		if !p.IsLender() {
			return fmt.Errorf("only lenders can make offers: %w", errs.ErrForbidden)
		}
		if l.HasLender() && !l.AssignedTo(p.ProfileID) {
			return fmt.Errorf("loan is pitched to another lender: %w", errs.ErrForbidden)
		}
		if !l.Negotiable() {
			return fmt.Errorf("loan %s is %s: %w", l.LoanID, l.Status, errs.ErrInvalidTransition)
		}
		if latest != nil && latest.Pending() && latest.ByLender() {
			return fmt.Errorf("offer %s still awaits the SME: %w", latest.OfferID, errs.ErrInvalidTransition)
		}
		return nil

	case actCounter:
		if !p.IsSME() || l.SMEID != p.ProfileID {
			return fmt.Errorf("only the owning SME can counter: %w", errs.ErrForbidden)
		}
		if !target.ByLender() {
			return fmt.Errorf("offer %s was not made by a lender: %w", target.OfferID, errs.ErrInvalidTransition)
		}

	case actAccept, actReject:
		if !isRecipient(p, l, target) {
			return fmt.Errorf("%s cannot %s offer %s: %w", p.Kind, act, target.OfferID, errs.ErrForbidden)
		}

	default:
		return fmt.Errorf("unknown action %q: %w", act, errs.ErrInvalidTransition)
	}

	if !target.Pending() {
		return fmt.Errorf("offer %s is %s: %w", target.OfferID, target.Status, errs.ErrInvalidTransition)
	}
	if !l.Negotiable() {
		return fmt.Errorf("loan %s is %s: %w", l.LoanID, l.Status, errs.ErrInvalidTransition)
	}
	return nil
}

// isRecipient: the SME answers lender offers, the lane's lender answers SME counters.
func isRecipient(p actor.Party, l *loan.Application, o *domain.Offer) bool {
	if o.ByLender() {
		return p.IsSME() && l.SMEID == p.ProfileID
	}
	return p.IsLender() && o.LenderID == p.ProfileID
}
