package negotiation

import (
	"context"
	"strings"
	"time"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/domain/loan"
	domain "sme-escrow/internal/domain/negotiation"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/infrastructure/logging"
	"sme-escrow/internal/infrastructure/metrics"
	"sme-escrow/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Usecase struct {
	loans  loan.Repository
	offers domain.Repository
	uow    uow.UnitOfWork
	log    *zap.Logger
	now    func() time.Time
}

// NewUsecase: repos serve reads, the UoW serves every mutation.
func NewUsecase(loans loan.Repository, offers domain.Repository, tx uow.UnitOfWork, log *zap.Logger) *Usecase {
	return &Usecase{loans: loans, offers: offers, uow: tx, log: logging.OrNop(log), now: time.Now}
}

func validateTerms(p actor.Party, rate decimal.Decimal, message string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := loan.ValidateRate("proposed_rate", rate); err != nil {
		return err
	}
	if len(message) > domain.MaxMessageLen {
		return errs.Invalid("message", "is too long")
	}
	return nil
}

func (u *Usecase) record(act action, err error) {
	metrics.NegotiationActionsTotal.WithLabelValues(string(act), metrics.Outcome(err)).Inc()
}

// CreateOffer opens or continues a lender's lane on the loan.
func (u *Usecase) CreateOffer(ctx context.Context, in CreateOfferInput) (dto *OfferDTO, err error) {
	defer func() { u.record(actCreate, err) }()
	if err := validateTerms(in.Actor, in.Rate, in.Message); err != nil {
		return nil, err
	}

	err = u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Application) error {
		latest, err := r.Offers.LatestInLane(ctx, l.ID, in.Actor.ProfileID)
		if err != nil {
			return err
		}
		if err := authorize(actCreate, in.Actor, l, nil, latest); err != nil {
			return err
		}

		o := &domain.Offer{
			OfferID:      id.NewID32(),
			LoanID:       l.ID,
			LenderID:     in.Actor.ProfileID,
			ProposerType: actor.KindLender,
			ProposerID:   in.Actor.ProfileID,
			ProposedRate: in.Rate.Round(2),
			Message:      strings.TrimSpace(in.Message),
			Status:       domain.StatusPending,
		}
		// an SME counter left pending is superseded by the new lender offer
		if latest != nil && latest.Pending() && !latest.ByLender() {
			latest.Status = domain.StatusCountered
			if err := r.Offers.Save(ctx, latest); err != nil {
				return err
			}
			o.ParentOfferID = &latest.OfferID
		}
		if err := r.Offers.Create(ctx, o); err != nil {
			return err
		}

		if l.Status == loan.StatusDraft || l.Status == loan.StatusSubmitted {
			l.Status = loan.StatusUnderReview
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
		}
		dto = toDTO(l.LoanID, o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// CounterOffer answers a pending lender offer with the SME's own rate.
func (u *Usecase) CounterOffer(ctx context.Context, in CounterInput) (dto *OfferDTO, err error) {
	defer func() { u.record(actCounter, err) }()
	if err := validateTerms(in.Actor, in.Rate, in.Message); err != nil {
		return nil, err
	}

	err = u.withinOfferTx(ctx, in.OfferID, func(r uow.Repos, l *loan.Application, target *domain.Offer) error {
		if err := authorize(actCounter, in.Actor, l, target, nil); err != nil {
			return err
		}
		target.Status = domain.StatusCountered
		if err := r.Offers.Save(ctx, target); err != nil {
			return err
		}
		counter := &domain.Offer{
			OfferID:       id.NewID32(),
			LoanID:        l.ID,
			LenderID:      target.LenderID,
			ProposerType:  actor.KindSME,
			ProposerID:    in.Actor.ProfileID,
			ParentOfferID: &target.OfferID,
			ProposedRate:  in.Rate.Round(2),
			Message:       strings.TrimSpace(in.Message),
			Status:        domain.StatusPending,
		}
		if err := r.Offers.Create(ctx, counter); err != nil {
			return err
		}
		dto = toDTO(l.LoanID, counter)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// AcceptOffer closes the negotiation: the loan is approved on the offer's
// terms and every other pending offer is rejected in the same transaction.
func (u *Usecase) AcceptOffer(ctx context.Context, in RespondInput) (dto *OfferDTO, err error) {
	defer func() { u.record(actAccept, err) }()
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}

	err = u.withinOfferTx(ctx, in.OfferID, func(r uow.Repos, l *loan.Application, target *domain.Offer) error {
		if err := authorize(actAccept, in.Actor, l, target, nil); err != nil {
			return err
		}

		now := u.now().UTC()
		lender := target.LenderID
		l.Status = loan.StatusApproved
		l.ApprovalDate = &now
		l.LenderID = &lender
		l.NegotiatedRate = decimal.NewNullDecimal(target.ProposedRate)
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}

		target.Status = domain.StatusAccepted
		if err := r.Offers.Save(ctx, target); err != nil {
			return err
		}
		rejected, err := r.Offers.RejectPendingExcept(ctx, l.ID, target.ID)
		if err != nil {
			return err
		}

		u.log.Info("offer accepted",
			zap.String("loan_id", l.LoanID),
			zap.String("offer_id", target.OfferID),
			zap.String("lender_id", lender),
			zap.String("rate", target.ProposedRate.StringFixed(2)),
			zap.Int64("siblings_rejected", rejected),
		)
		dto = toDTO(l.LoanID, target)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// RejectOffer declines one pending offer; nothing else changes.
func (u *Usecase) RejectOffer(ctx context.Context, in RespondInput) (dto *OfferDTO, err error) {
	defer func() { u.record(actReject, err) }()
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}

	err = u.withinOfferTx(ctx, in.OfferID, func(r uow.Repos, l *loan.Application, target *domain.Offer) error {
		if err := authorize(actReject, in.Actor, l, target, nil); err != nil {
			return err
		}
		target.Status = domain.StatusRejected
		if err := r.Offers.Save(ctx, target); err != nil {
			return err
		}
		dto = toDTO(l.LoanID, target)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListThread returns the negotiation in creation order. Lenders only see
// their own lane.
func (u *Usecase) ListThread(ctx context.Context, loanID string, p actor.Party) ([]OfferDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l, err := u.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actView, p, l, nil, nil); err != nil {
		return nil, err
	}
	thread, err := u.offers.ListByLoan(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	out := make([]OfferDTO, 0, len(thread))
	for i := range thread {
		if p.IsLender() && thread[i].LenderID != p.ProfileID {
			continue
		}
		out = append(out, *toDTO(l.LoanID, &thread[i]))
	}
	return out, nil
}

// withinOfferTx locks the offer's loan, then re-reads the offer under that
// lock so its status cannot change underneath fn.
func (u *Usecase) withinOfferTx(ctx context.Context, offerID string, fn func(r uow.Repos, l *loan.Application, o *domain.Offer) error) error {
	return u.uow.WithinTx(ctx, func(r uow.Repos) error {
		o, err := r.Offers.GetByOfferID(ctx, offerID)
		if err != nil {
			return err
		}
		l, err := r.Loans.GetByIDForUpdate(ctx, o.LoanID)
		if err != nil {
			return err
		}
		if o, err = r.Offers.GetByOfferID(ctx, offerID); err != nil {
			return err
		}
		return fn(r, l, o)
	})
}
