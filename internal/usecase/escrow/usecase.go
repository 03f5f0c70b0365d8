package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	domain "sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/payment"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/infrastructure/logging"
	"sme-escrow/internal/infrastructure/metrics"
	"sme-escrow/pkg/id"

	"go.uber.org/zap"
)

const defaultGatewayTimeout = 10 * time.Second

type Deps struct {
	Loans         loan.Repository
	Accounts      domain.AccountRepository
	Transactions  domain.TransactionRepository
	Disbursements domain.DisbursementRepository
	UoW           uow.UnitOfWork
	Gateway       payment.Gateway
	Banks         BankCodes
	Payees        Beneficiaries
	Schedule      ScheduleGenerator
}

type Options struct {
	// GatewayTimeout bounds every payment gateway call.
	GatewayTimeout time.Duration
}

// Engine moves lender money into escrow and out to the SME.
// Gateway calls never run inside a database transaction.
type Engine struct {
	Deps
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

func NewEngine(d Deps, opts Options, log *zap.Logger) *Engine {
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = defaultGatewayTimeout
	}
	return &Engine{Deps: d, opts: opts, log: logging.OrNop(log), now: time.Now}
}

// CreateEscrowAccount opens the escrow for an approved loan. A loan has at
// most one account.
func (e *Engine) CreateEscrowAccount(ctx context.Context, loanID string, p actor.Party) (*AccountDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var dto *AccountDTO
	err := e.UoW.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Application) error {
		if !canView(p, l) {
			return fmt.Errorf("%s cannot open escrow for loan %s: %w", p.Kind, l.LoanID, errs.ErrForbidden)
		}
		if l.Status != loan.StatusApproved {
			return fmt.Errorf("loan %s is %s: %w", l.LoanID, l.Status, errs.ErrInvalidTransition)
		}
		_, err := r.Escrows.GetByLoanIDForUpdate(ctx, l.ID)
		switch {
		case err == nil:
			return fmt.Errorf("escrow for loan %s: %w", l.LoanID, errs.ErrAlreadyExists)
		case !errors.Is(err, errs.ErrNotFound):
			return err
		}
		acct, err := e.openAccount(ctx, r, l)
		if err != nil {
			return err
		}
		dto = toAccountDTO(l.LoanID, acct)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.EscrowTransitionsTotal.WithLabelValues(string(domain.StatusPending)).Inc()
	return dto, nil
}

func (e *Engine) GetEscrow(ctx context.Context, loanID string, p actor.Party) (*AccountDTO, error) {
	l, err := e.visibleLoan(ctx, loanID, p)
	if err != nil {
		return nil, err
	}
	acct, err := e.Accounts.GetByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return toAccountDTO(l.LoanID, acct), nil
}

func (e *Engine) GetDisbursement(ctx context.Context, loanID string, p actor.Party) (*DisbursementDTO, error) {
	l, err := e.visibleLoan(ctx, loanID, p)
	if err != nil {
		return nil, err
	}
	d, err := e.Disbursements.GetByLoanID(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	return toDisbursementDTO(l.LoanID, d), nil
}

func (e *Engine) visibleLoan(ctx context.Context, loanID string, p actor.Party) (*loan.Application, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	l, err := e.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !canView(p, l) {
		return nil, fmt.Errorf("%s cannot view loan %s: %w", p.Kind, l.LoanID, errs.ErrForbidden)
	}
	return l, nil
}

// ensureAccount returns the loan's locked escrow, opening it when absent.
func (e *Engine) ensureAccount(ctx context.Context, r uow.Repos, l *loan.Application) (*domain.Account, error) {
	acct, err := r.Escrows.GetByLoanIDForUpdate(ctx, l.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return e.openAccount(ctx, r, l)
	}
	return acct, err
}

func (e *Engine) openAccount(ctx context.Context, r uow.Repos, l *loan.Application) (*domain.Account, error) {
	acct := &domain.Account{
		EscrowID: id.NewEscrowID(),
		LoanID:   l.ID,
		Currency: l.Currency,
		Status:   domain.StatusPending,
	}
	if err := r.Escrows.Create(ctx, acct); err != nil {
		return nil, err
	}
	e.log.Info("escrow account opened", zap.String("loan_id", l.LoanID), zap.String("escrow_id", acct.EscrowID))
	return acct, nil
}

// refold recomputes amount_held from the completed ledger entries.
func refold(ctx context.Context, r uow.Repos, acct *domain.Account) error {
	funded, err := r.Transactions.SumCompleted(ctx, acct.ID, domain.TxFundEscrow)
	if err != nil {
		return err
	}
	disbursed, err := r.Transactions.SumCompleted(ctx, acct.ID, domain.TxDisburse)
	if err != nil {
		return err
	}
	acct.AmountHeld = domain.Balance(funded, disbursed)
	return nil
}

func (e *Engine) gatewayCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.GatewayTimeout)
}

func (e *Engine) logGatewayFailure(err error, reference, loanID string) {
	op := "unknown"
	var f *payment.Failure
	if errors.As(err, &f) {
		op = f.Op
	}
	e.log.Error("payment gateway call failed",
		zap.String("op", op),
		zap.String("reference", reference),
		zap.String("loan_id", loanID),
		zap.Error(err),
	)
}

func canView(p actor.Party, l *loan.Application) bool {
	if p.IsSME() {
		return l.SMEID == p.ProfileID
	}
	return l.AssignedTo(p.ProfileID)
}

func isAssignedLender(p actor.Party, l *loan.Application) bool {
	return p.IsLender() && l.AssignedTo(p.ProfileID)
}
