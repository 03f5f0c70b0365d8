package loan

import (
	"context"
	"fmt"
	"strings"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	domain "sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/infrastructure/logging"
	"sme-escrow/pkg/id"

	"go.uber.org/zap"
)

type Usecase struct {
	repo     domain.Repository
	uow      uow.UnitOfWork
	log      *zap.Logger
	currency string
}

func NewUsecase(r domain.Repository, tx uow.UnitOfWork, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, uow: tx, log: logging.OrNop(log), currency: domain.DefaultCurrency}
}

// WithCurrency sets the currency of applications that do not name one.
func (u *Usecase) WithCurrency(code string) *Usecase {
	if code != "" {
		u.currency = strings.ToUpper(code)
	}
	return u
}

// Create files a new application for the acting SME, ready for offers.
func (u *Usecase) Create(ctx context.Context, in CreateLoanInput) (*LoanDTO, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	if !in.Actor.IsSME() {
		return nil, fmt.Errorf("only SMEs can apply for loans: %w", errs.ErrForbidden)
	}
	if err := domain.ValidateTerms(in.Amount, in.InterestRate, in.TenureMonths, in.Frequency); err != nil {
		return nil, err
	}
	purpose := strings.TrimSpace(in.Purpose)
	if purpose == "" {
		return nil, errs.Invalid("purpose", "is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = u.currency
	}
	if len(currency) != 3 {
		return nil, errs.Invalid("currency", "must be a 3-letter code")
	}

	a := &domain.Application{
		LoanID:       id.NewID32(),
		SMEID:        in.Actor.ProfileID,
		Amount:       in.Amount,
		Currency:     currency,
		InterestRate: in.InterestRate,
		TenureMonths: in.TenureMonths,
		Purpose:      purpose,
		Frequency:    in.Frequency,
		Status:       domain.StatusSubmitted,
	}
	if err := u.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	u.log.Info("loan application submitted",
		zap.String("loan_id", a.LoanID),
		zap.String("sme_id", a.SMEID),
		zap.String("amount", a.Amount.StringFixed(2)),
	)
	return toDTO(a), nil
}

// Get shows an application to its SME, and to lenders while it is open on
// the marketplace or once it is theirs.
func (u *Usecase) Get(ctx context.Context, loanID string, p actor.Party) (*LoanDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	a, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !visible(p, a) {
		return nil, fmt.Errorf("%s cannot view loan %s: %w", p.Kind, a.LoanID, errs.ErrForbidden)
	}
	return toDTO(a), nil
}

func visible(p actor.Party, a *domain.Application) bool {
	if p.IsSME() {
		return a.SMEID == p.ProfileID
	}
	return !a.HasLender() || a.AssignedTo(p.ProfileID)
}

// PitchToLender reserves a fresh application for one lender; only that
// lender may then make offers on it.
func (u *Usecase) PitchToLender(ctx context.Context, in PitchInput) (*LoanDTO, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	lender, err := actor.ParseParty(string(actor.KindLender), in.LenderID)
	if err != nil {
		return nil, errs.Invalid("lender_id", "must be 32-char lowercase hex")
	}

	var dto *LoanDTO
	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, a *domain.Application) error {
		if !in.Actor.IsSME() || a.SMEID != in.Actor.ProfileID {
			return fmt.Errorf("only the owning SME can pitch: %w", errs.ErrForbidden)
		}
		if a.Status != domain.StatusDraft && a.Status != domain.StatusSubmitted {
			return fmt.Errorf("loan %s is %s: %w", a.LoanID, a.Status, errs.ErrInvalidTransition)
		}
		if a.HasLender() {
			return fmt.Errorf("loan %s already pitched to %s: %w", a.LoanID, *a.LenderID, errs.ErrInvalidTransition)
		}
		a.LenderID = &lender.ProfileID
		a.Status = domain.StatusSubmitted
		if err := r.Loans.Save(ctx, a); err != nil {
			return err
		}
		dto = toDTO(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// RejectApplication lets the lender the application was pitched to turn it
// down outright. Every open offer on it is rejected with it. Applications
// on the open marketplace have no such lender; there, lenders decline by
// rejecting offers in their own lane.
func (u *Usecase) RejectApplication(ctx context.Context, in RejectInput) (*LoanDTO, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}

	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, a *domain.Application) error {
		if !in.Actor.IsLender() {
			return fmt.Errorf("only lenders can reject applications: %w", errs.ErrForbidden)
		}
		if !a.HasLender() {
			return fmt.Errorf("loan %s is not pitched to a lender: %w", a.LoanID, errs.ErrForbidden)
		}
		if !a.AssignedTo(in.Actor.ProfileID) {
			return fmt.Errorf("loan is pitched to another lender: %w", errs.ErrForbidden)
		}
		if a.Status != domain.StatusSubmitted && a.Status != domain.StatusUnderReview {
			return fmt.Errorf("loan %s is %s: %w", a.LoanID, a.Status, errs.ErrInvalidTransition)
		}
		a.Status = domain.StatusRejected
		if err := r.Loans.Save(ctx, a); err != nil {
			return err
		}
		n, err := r.Offers.RejectPendingExcept(ctx, a.ID, 0)
		if err != nil {
			return err
		}
		u.log.Info("loan application rejected",
			zap.String("loan_id", a.LoanID),
			zap.String("lender_id", in.Actor.ProfileID),
			zap.Int64("offers_rejected", n),
		)
		dto = toDTO(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
