package repayment

import (
	"context"
	"fmt"
	"time"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	domain "sme-escrow/internal/domain/repayment"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/infrastructure/logging"
	"sme-escrow/internal/infrastructure/metrics"
	"sme-escrow/pkg/id"

	"go.uber.org/zap"
)

type Options struct {
	// Frequencies lists the repayment frequencies this deployment schedules.
	// Empty enables all of them.
	Frequencies []loan.Frequency
	DueDates    DueDates
}

type Scheduler struct {
	loans        loan.Repository
	installments domain.Repository
	uow          uow.UnitOfWork
	log          *zap.Logger
	opts         Options
	enabled      map[loan.Frequency]bool
	now          func() time.Time
}

func NewScheduler(loans loan.Repository, installments domain.Repository, tx uow.UnitOfWork, opts Options, log *zap.Logger) *Scheduler {
	if opts.DueDates == "" {
		opts.DueDates = DueApprox30
	}
	freqs := opts.Frequencies
	if len(freqs) == 0 {
		freqs = []loan.Frequency{loan.FrequencyMonthly, loan.FrequencyQuarterly, loan.FrequencyBullet}
	}
	enabled := make(map[loan.Frequency]bool, len(freqs))
	for _, f := range freqs {
		enabled[f] = true
	}
	return &Scheduler{
		loans:        loans,
		installments: installments,
		uow:          tx,
		log:          logging.OrNop(log),
		opts:         opts,
		enabled:      enabled,
		now:          time.Now,
	}
}

// Supports reports whether schedules are generated for freq.
func (s *Scheduler) Supports(freq loan.Frequency) bool { return s.enabled[freq] }

// Generate replaces the loan's schedule using the caller's transaction.
func (s *Scheduler) Generate(ctx context.Context, r uow.Repos, l *loan.Application) ([]domain.Installment, error) {
	if !s.Supports(l.Frequency) {
		return nil, fmt.Errorf("repayment frequency %q: %w", l.Frequency, errs.ErrUnsupportedFrequency)
	}
	items, err := Plan(l, s.opts.DueDates)
	if err != nil {
		return nil, err
	}
	if _, err := r.Installments.DeleteByLoan(ctx, l.ID); err != nil {
		return nil, err
	}
	if err := r.Installments.CreateBatch(ctx, items); err != nil {
		return nil, err
	}
	s.log.Info("repayment schedule generated",
		zap.String("loan_id", l.LoanID),
		zap.String("frequency", string(l.Frequency)),
		zap.Int("installments", len(items)),
	)
	return items, nil
}

// GenerateSchedule regenerates the schedule of a disbursed loan on its own.
func (s *Scheduler) GenerateSchedule(ctx context.Context, loanID string) ([]InstallmentDTO, error) {
	var out []InstallmentDTO
	err := s.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Application) error {
		items, err := s.Generate(ctx, r, l)
		if err != nil {
			return err
		}
		out = make([]InstallmentDTO, 0, len(items))
		for i := range items {
			out = append(out, toDTO(&items[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetSchedule is visible to the owning SME and the assigned lender.
func (s *Scheduler) GetSchedule(ctx context.Context, loanID string, p actor.Party) ([]InstallmentDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l, err := s.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !canView(p, l) {
		return nil, fmt.Errorf("%s cannot view loan %s: %w", p.Kind, l.LoanID, errs.ErrForbidden)
	}
	items, err := s.installments.ListByLoan(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	out := make([]InstallmentDTO, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	return out, nil
}

// MakeRepayment settles one installment in full. Paying the last open
// installment completes the loan.
func (s *Scheduler) MakeRepayment(ctx context.Context, in RepayInput) (*RepaymentDTO, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	if in.Number < 1 {
		return nil, errs.Invalid("installment_number", "must be positive")
	}
	if !in.Amount.IsPositive() {
		return nil, errs.Invalid("amount", "must be greater than 0")
	}

	var dto *RepaymentDTO
	err := s.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Application) error {
		if !in.Actor.IsSME() || l.SMEID != in.Actor.ProfileID {
			return fmt.Errorf("only the owning SME can repay: %w", errs.ErrForbidden)
		}
		if l.Status != loan.StatusActive {
			return fmt.Errorf("loan %s is %s: %w", l.LoanID, l.Status, errs.ErrInvalidTransition)
		}
		inst, err := r.Installments.GetByNumberForUpdate(ctx, l.ID, in.Number)
		if err != nil {
			return err
		}
		if !inst.Payable() {
			return fmt.Errorf("installment %d is %s: %w", inst.InstallmentNumber, inst.Status, errs.ErrInvalidTransition)
		}
		if !in.Amount.Equal(inst.TotalAmount) {
			return fmt.Errorf("installment %d is due %s, got %s: %w",
				inst.InstallmentNumber, inst.TotalAmount.StringFixed(2), in.Amount.StringFixed(2), errs.ErrAmountMismatch)
		}
		acct, err := r.Escrows.GetByLoanID(ctx, l.ID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		t := &escrow.Transaction{
			Reference:     id.NewReference(id.PrefixRepayment),
			EscrowID:      acct.ID,
			LoanID:        l.ID,
			InstallmentID: &inst.ID,
			Type:          escrow.TxRepayment,
			Amount:        inst.TotalAmount,
			Currency:      l.Currency,
			Status:        escrow.TxCompleted,
			Description:   fmt.Sprintf("Repayment of installment %d", inst.InstallmentNumber),
			CompletedAt:   &now,
		}
		if err := r.Transactions.Create(ctx, t); err != nil {
			return err
		}

		inst.Status = domain.StatusPaid
		inst.PaidAt = &now
		if err := r.Installments.Save(ctx, inst); err != nil {
			return err
		}

		unpaid, err := r.Installments.CountUnpaid(ctx, l.ID)
		if err != nil {
			return err
		}
		if unpaid == 0 {
			l.Status = loan.StatusCompleted
			l.CompletionDate = &now
			if err := r.Loans.Save(ctx, l); err != nil {
				return err
			}
			s.log.Info("loan completed", zap.String("loan_id", l.LoanID))
		}

		dto = &RepaymentDTO{
			Reference:   t.Reference,
			LoanID:      l.LoanID,
			Installment: toDTO(inst),
			Amount:      t.Amount,
			LoanStatus:  string(l.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// MarkOverdue flags pending installments whose due date has passed.
func (s *Scheduler) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.installments.MarkOverdue(ctx, day(now))
	if err != nil {
		return 0, err
	}
	metrics.InstallmentsOverdueTotal.Add(float64(n))
	return n, nil
}

func canView(p actor.Party, l *loan.Application) bool {
	if p.IsSME() {
		return l.SMEID == p.ProfileID
	}
	return l.AssignedTo(p.ProfileID)
}
