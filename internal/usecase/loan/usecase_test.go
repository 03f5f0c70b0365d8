package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	domain "sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/testutil/loanmock"
	"sme-escrow/internal/testutil/offermock"
	"sme-escrow/internal/testutil/uowmock"

	"github.com/shopspring/decimal"
)

const (
	smeID    = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	lenderID = "cccccccccccccccccccccccccccccccc"
	loanID   = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

func validInput() CreateLoanInput {
	return CreateLoanInput{
		Actor:        actor.SME(smeID),
		Amount:       decimal.RequireFromString("5000000.00"),
		InterestRate: decimal.RequireFromString("22.00"),
		TenureMonths: 12,
		Purpose:      "buy a delivery van",
		Frequency:    domain.FrequencyMonthly,
	}
}

// newWithLoan wires the usecase around a single stored application.
func newWithLoan(a *domain.Application) (*Usecase, *loanmock.Repo, *offermock.Repo) {
	loans := &loanmock.Repo{
		GetByLoanIDForUpdateFn: func(_ context.Context, id string) (*domain.Application, error) {
			if id != a.LoanID {
				return nil, domain.ErrNotFound
			}
			return a, nil
		},
	}
	offers := &offermock.Repo{}
	tx := uowmock.Passthrough(uow.Repos{Loans: loans, Offers: offers})
	return NewUsecase(loans, tx, nil), loans, offers
}

func TestCreate_Success(t *testing.T) {
	var stored *domain.Application
	uc := NewUsecase(&loanmock.Repo{
		CreateFn: func(_ context.Context, a *domain.Application) error {
			stored = a
			a.CreatedAt = time.Now().UTC()
			return nil
		},
	}, uowmock.New(), nil)

	dto, err := uc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if len(dto.LoanID) != 32 {
		t.Fatalf("LoanID length: %d", len(dto.LoanID))
	}
	if dto.Status != string(domain.StatusSubmitted) || dto.Currency != domain.DefaultCurrency {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if stored == nil || stored.SMEID != smeID || stored.LenderID != nil {
		t.Fatalf("unexpected stored application: %+v", stored)
	}
}

func TestCreate_InvalidInput(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{
		CreateFn: func(context.Context, *domain.Application) error {
			t.Fatal("Create must not be called for invalid input")
			return nil
		},
	}, uowmock.New(), nil)

	cases := map[string]func(in *CreateLoanInput){
		"zero amount":     func(in *CreateLoanInput) { in.Amount = decimal.Zero },
		"three decimals":  func(in *CreateLoanInput) { in.Amount = decimal.RequireFromString("10.001") },
		"rate above 50":   func(in *CreateLoanInput) { in.InterestRate = decimal.NewFromInt(51) },
		"tenure 0":        func(in *CreateLoanInput) { in.TenureMonths = 0 },
		"tenure 61":       func(in *CreateLoanInput) { in.TenureMonths = 61 },
		"bad frequency":   func(in *CreateLoanInput) { in.Frequency = "weekly" },
		"missing purpose": func(in *CreateLoanInput) { in.Purpose = "  " },
		"bad currency":    func(in *CreateLoanInput) { in.Currency = "NAIRA" },
		"bad actor id":    func(in *CreateLoanInput) { in.Actor = actor.SME("short") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			if _, err := uc.Create(context.Background(), in); !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestCreate_LenderForbidden(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, uowmock.New(), nil)
	in := validInput()
	in.Actor = actor.Lender(lenderID)
	if _, err := uc.Create(context.Background(), in); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
}

func TestGet_Success(t *testing.T) {
	now := time.Now().UTC()
	uc := NewUsecase(&loanmock.Repo{
		GetByLoanIDFn: func(_ context.Context, id string) (*domain.Application, error) {
			return &domain.Application{LoanID: id, SMEID: smeID, Status: domain.StatusSubmitted, CreatedAt: now}, nil
		},
	}, uowmock.New(), nil)

	dto, err := uc.Get(context.Background(), loanID, actor.SME(smeID))
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if dto.LoanID != loanID || dto.LenderID != "" {
		t.Fatalf("got %+v", dto)
	}
}

func TestGet_Visibility(t *testing.T) {
	other := "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	pitched := lenderID
	marketplace := &domain.Application{LoanID: loanID, SMEID: smeID, Status: domain.StatusSubmitted}
	reserved := &domain.Application{LoanID: loanID, SMEID: smeID, LenderID: &pitched, Status: domain.StatusSubmitted}

	cases := []struct {
		name   string
		loan   *domain.Application
		viewer actor.Party
		wantOK bool
	}{
		{"owner", reserved, actor.SME(smeID), true},
		{"foreign sme", marketplace, actor.SME(other), false},
		{"any lender on marketplace loan", marketplace, actor.Lender(other), true},
		{"pitched lender", reserved, actor.Lender(lenderID), true},
		{"lender outside the pitch", reserved, actor.Lender(other), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := tc.loan
			uc := NewUsecase(&loanmock.Repo{
				GetByLoanIDFn: func(context.Context, string) (*domain.Application, error) { return a, nil },
			}, uowmock.New(), nil)

			_, err := uc.Get(context.Background(), loanID, tc.viewer)
			if tc.wantOK && err != nil {
				t.Fatalf("want visible, got %v", err)
			}
			if !tc.wantOK && !errors.Is(err, errs.ErrForbidden) {
				t.Fatalf("want forbidden, got %v", err)
			}
		})
	}
}

func TestPitchToLender(t *testing.T) {
	a := &domain.Application{ID: 1, LoanID: loanID, SMEID: smeID, Status: domain.StatusDraft}
	uc, loans, _ := newWithLoan(a)
	saved := false
	loans.SaveFn = func(context.Context, *domain.Application) error { saved = true; return nil }
	ctx := context.Background()

	_, err := uc.PitchToLender(ctx, PitchInput{LoanID: loanID, Actor: actor.SME("dddddddddddddddddddddddddddddddd"), LenderID: lenderID})
	if !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("foreign SME: want forbidden, got %v", err)
	}
	_, err = uc.PitchToLender(ctx, PitchInput{LoanID: loanID, Actor: actor.SME(smeID), LenderID: "nope"})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad lender id: want validation, got %v", err)
	}

	dto, err := uc.PitchToLender(ctx, PitchInput{LoanID: loanID, Actor: actor.SME(smeID), LenderID: lenderID})
	if err != nil {
		t.Fatalf("pitch: %v", err)
	}
	if !saved || dto.LenderID != lenderID || dto.Status != string(domain.StatusSubmitted) {
		t.Fatalf("unexpected result: saved=%v dto=%+v", saved, dto)
	}

	_, err = uc.PitchToLender(ctx, PitchInput{LoanID: loanID, Actor: actor.SME(smeID), LenderID: lenderID})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("second pitch: want invalid transition, got %v", err)
	}
}

func TestRejectApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("pitched lender rejects open offers with the loan", func(t *testing.T) {
		lender := lenderID
		a := &domain.Application{ID: 4, LoanID: loanID, SMEID: smeID, LenderID: &lender, Status: domain.StatusUnderReview}
		uc, _, offers := newWithLoan(a)
		var gotLoan, gotKeep uint64
		offers.RejectPendingExceptFn = func(_ context.Context, l, keep uint64) (int64, error) {
			gotLoan, gotKeep = l, keep
			return 2, nil
		}

		dto, err := uc.RejectApplication(ctx, RejectInput{LoanID: loanID, Actor: actor.Lender(lenderID)})
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if dto.Status != string(domain.StatusRejected) || gotLoan != 4 || gotKeep != 0 {
			t.Fatalf("dto=%+v loan=%d keep=%d", dto, gotLoan, gotKeep)
		}
	})

	t.Run("marketplace loan cannot be rejected by a lender", func(t *testing.T) {
		a := &domain.Application{ID: 9, LoanID: loanID, SMEID: smeID, Status: domain.StatusUnderReview}
		uc, loans, offers := newWithLoan(a)
		loans.SaveFn = func(context.Context, *domain.Application) error {
			t.Fatal("loan must not be saved")
			return nil
		}
		offers.RejectPendingExceptFn = func(context.Context, uint64, uint64) (int64, error) {
			t.Fatal("offers must not be touched")
			return 0, nil
		}
		if _, err := uc.RejectApplication(ctx, RejectInput{LoanID: loanID, Actor: actor.Lender(lenderID)}); !errors.Is(err, errs.ErrForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
		if a.Status != domain.StatusUnderReview {
			t.Fatalf("status changed to %s", a.Status)
		}
	})

	t.Run("pitched to someone else", func(t *testing.T) {
		other := "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
		a := &domain.Application{ID: 5, LoanID: loanID, SMEID: smeID, LenderID: &other, Status: domain.StatusSubmitted}
		uc, _, _ := newWithLoan(a)
		if _, err := uc.RejectApplication(ctx, RejectInput{LoanID: loanID, Actor: actor.Lender(lenderID)}); !errors.Is(err, errs.ErrForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
	})

	t.Run("sme cannot reject", func(t *testing.T) {
		a := &domain.Application{ID: 6, LoanID: loanID, SMEID: smeID, Status: domain.StatusSubmitted}
		uc, _, _ := newWithLoan(a)
		if _, err := uc.RejectApplication(ctx, RejectInput{LoanID: loanID, Actor: actor.SME(smeID)}); !errors.Is(err, errs.ErrForbidden) {
			t.Fatalf("want forbidden, got %v", err)
		}
	})

	t.Run("already approved", func(t *testing.T) {
		lender := lenderID
		a := &domain.Application{ID: 7, LoanID: loanID, SMEID: smeID, LenderID: &lender, Status: domain.StatusApproved}
		uc, _, _ := newWithLoan(a)
		if _, err := uc.RejectApplication(ctx, RejectInput{LoanID: loanID, Actor: actor.Lender(lenderID)}); !errors.Is(err, errs.ErrInvalidTransition) {
			t.Fatalf("want invalid transition, got %v", err)
		}
	})

	t.Run("unknown loan", func(t *testing.T) {
		a := &domain.Application{ID: 8, LoanID: loanID, SMEID: smeID, Status: domain.StatusSubmitted}
		uc, _, _ := newWithLoan(a)
		if _, err := uc.RejectApplication(ctx, RejectInput{LoanID: "ffffffffffffffffffffffffffffffff", Actor: actor.Lender(lenderID)}); !errors.Is(err, errs.ErrNotFound) {
			t.Fatalf("want not found, got %v", err)
		}
	})
}

func TestCreate_DefaultCurrency(t *testing.T) {
	uc := NewUsecase(&loanmock.Repo{}, uowmock.New(), nil).WithCurrency("ghs")
	dto, err := uc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if dto.Currency != "GHS" {
		t.Fatalf("currency=%s", dto.Currency)
	}
}
