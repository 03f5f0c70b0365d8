// Package actor identifies who performs an operation.
package actor

import (
	"regexp"

	"sme-escrow/internal/domain/errs"
)

type Kind string

const (
	KindSME    Kind = "sme"
	KindLender Kind = "lender"
)

var reProfileID = regexp.MustCompile(`^[a-f0-9]{32}$`)

// Party is the acting side of a request: exactly one of SME or lender,
// carrying the concrete profile id.
type Party struct {
	Kind      Kind
	ProfileID string
}

func SME(profileID string) Party    { return Party{Kind: KindSME, ProfileID: profileID} }
func Lender(profileID string) Party { return Party{Kind: KindLender, ProfileID: profileID} }

func (p Party) IsSME() bool    { return p.Kind == KindSME }
func (p Party) IsLender() bool { return p.Kind == KindLender }

func (p Party) Validate() error {
	switch p.Kind {
	case KindSME, KindLender:
	default:
		return errs.Invalid("actor_type", "must be sme or lender")
	}
	if !reProfileID.MatchString(p.ProfileID) {
		return errs.Invalid("actor_id", "must be 32-char lowercase hex")
	}
	return nil
}

// ParseParty builds a Party from its wire representation.
func ParseParty(kind, profileID string) (Party, error) {
	p := Party{Kind: Kind(kind), ProfileID: profileID}
	return p, p.Validate()
}
