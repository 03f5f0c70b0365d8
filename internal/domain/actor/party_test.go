package actor

import (
	"errors"
	"testing"

	"sme-escrow/internal/domain/errs"
)

func TestParseParty(t *testing.T) {
	const id = "0123456789abcdef0123456789abcdef"

	p, err := ParseParty("lender", id)
	if err != nil || !p.IsLender() || p.ProfileID != id {
		t.Fatalf("expected lender party, got %+v err=%v", p, err)
	}
	if p, err = ParseParty("sme", id); err != nil || !p.IsSME() {
		t.Fatalf("expected sme party, got %+v err=%v", p, err)
	}
	if _, err := ParseParty("admin", id); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for kind, got %v", err)
	}
	if _, err := ParseParty("sme", "ABC"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for id, got %v", err)
	}
}
