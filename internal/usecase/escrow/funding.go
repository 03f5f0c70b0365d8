package escrow

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"sme-escrow/internal/domain/errs"
	domain "sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/payment"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/infrastructure/metrics"
	"sme-escrow/pkg/id"

	"go.uber.org/zap"
)

// InitializeFunding starts a lender's payment of the full loan amount into
// escrow. The ledger entry is recorded only once the gateway accepted the charge.
func (e *Engine) InitializeFunding(ctx context.Context, in FundingInput) (*FundingDTO, error) {
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, errs.Invalid("amount", "must be greater than 0")
	}
	email := strings.TrimSpace(in.PayerEmail)
	if email == "" {
		return nil, errs.Invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errs.Invalid("email", "is not a valid address")
	}

	var (
		currency string
		escrowID string
	)
	err := e.UoW.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Application) error {
		if l.Status != loan.StatusApproved {
			return fmt.Errorf("loan %s is %s: %w", l.LoanID, l.Status, errs.ErrInvalidTransition)
		}
		if !isAssignedLender(in.Actor, l) {
			return fmt.Errorf("only the assigned lender can fund loan %s: %w", l.LoanID, errs.ErrForbidden)
		}
		acct, err := e.ensureAccount(ctx, r, l)
		if err != nil {
			return err
		}
		if acct.Funded() {
			return fmt.Errorf("escrow %s is %s: %w", acct.EscrowID, acct.Status, errs.ErrAlreadyFunded)
		}
		if !in.Amount.Equal(l.Amount) {
			return fmt.Errorf("loan %s needs %s, got %s: %w",
				l.LoanID, l.Amount.StringFixed(2), in.Amount.StringFixed(2), errs.ErrAmountMismatch)
		}
		currency, escrowID = l.Currency, acct.EscrowID
		return nil
	})
	if err != nil {
		return nil, err
	}

	ref := id.NewReference(id.PrefixEscrowFunding)
	gctx, cancel := e.gatewayCtx(ctx)
	charge, err := e.Gateway.InitializeTransaction(gctx, payment.ChargeRequest{
		Email:     email,
		Amount:    in.Amount,
		Currency:  currency,
		Reference: ref,
	})
	cancel()
	if err != nil {
		e.logGatewayFailure(err, ref, in.LoanID)
		return nil, err
	}

	err = e.UoW.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *loan.Application) error {
		acct, err := r.Escrows.GetByLoanIDForUpdate(ctx, l.ID)
		if err != nil {
			return err
		}
		// another funding may have settled while the gateway was called
		if acct.Funded() {
			return fmt.Errorf("escrow %s is %s: %w", acct.EscrowID, acct.Status, errs.ErrAlreadyFunded)
		}
		return r.Transactions.Create(ctx, &domain.Transaction{
			Reference:   ref,
			EscrowID:    acct.ID,
			LoanID:      l.ID,
			Type:        domain.TxFundEscrow,
			Amount:      in.Amount,
			Currency:    currency,
			Status:      domain.TxPending,
			Description: fmt.Sprintf("Escrow funding for loan %s", l.LoanID),
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("escrow funding initialized",
		zap.String("loan_id", in.LoanID),
		zap.String("reference", ref),
		zap.String("amount", in.Amount.StringFixed(2)),
	)
	return &FundingDTO{
		AuthorizationURL: charge.AuthorizationURL,
		AccessCode:       charge.AccessCode,
		Reference:        ref,
		EscrowID:         escrowID,
		Amount:           in.Amount,
	}, nil
}

// VerifyFunding settles a pending funding entry against the gateway. It is
// safe to call any number of times for one reference; only the first
// successful call moves money.
func (e *Engine) VerifyFunding(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, errs.Invalid("reference", "is required")
	}

	t, err := e.Transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if t.Type != domain.TxFundEscrow {
		return nil, fmt.Errorf("transaction %s is a %s entry: %w", reference, t.Type, errs.ErrInvalidTransition)
	}
	switch t.Status {
	case domain.TxCompleted:
		return &VerifyResult{Reference: reference, Duplicate: true}, nil
	case domain.TxFailed, domain.TxCancelled:
		return e.settledAsFailed(t), nil
	case domain.TxPending:
	default:
		return nil, fmt.Errorf("transaction %s is %s: %w", reference, t.Status, errs.ErrInvalidTransition)
	}

	gctx, cancel := e.gatewayCtx(ctx)
	v, err := e.Gateway.VerifyTransaction(gctx, reference)
	cancel()
	if err != nil {
		e.logGatewayFailure(err, reference, fmt.Sprint(t.LoanID))
		return nil, err
	}

	var (
		res      *VerifyResult
		rejected error
	)
	err = e.UoW.WithinTransactionTx(ctx, reference, func(r uow.Repos, t *domain.Transaction) error {
		switch t.Status {
		case domain.TxCompleted:
			res = &VerifyResult{Reference: reference, Duplicate: true}
			return nil
		case domain.TxFailed, domain.TxCancelled:
			res = e.settledAsFailed(t)
			return nil
		}
		if t.Status != domain.TxPending {
			return fmt.Errorf("transaction %s is %s: %w", reference, t.Status, errs.ErrInvalidTransition)
		}
		acct, err := r.Escrows.GetByLoanIDForUpdate(ctx, t.LoanID)
		if err != nil {
			return err
		}
		now := e.now()

		// anomalies fail the entry but still commit, so the payload is kept
		switch {
		case !v.Amount.Equal(t.Amount):
			rejected = fmt.Errorf("reference %s settled %s, expected %s: %w",
				reference, v.Amount.StringFixed(2), t.Amount.StringFixed(2), errs.ErrAmountMismatch)
		case acct.Status != domain.StatusPending:
			rejected = fmt.Errorf("escrow %s is %s: %w", acct.EscrowID, acct.Status, errs.ErrAlreadyFunded)
		}
		if rejected != nil {
			if err := t.Finalize(domain.TxFailed, v.Payload, now); err != nil {
				return err
			}
			return r.Transactions.Save(ctx, t)
		}

		if err := t.Finalize(domain.TxCompleted, v.Payload, now); err != nil {
			return err
		}
		if err := r.Transactions.Save(ctx, t); err != nil {
			return err
		}
		if err := refold(ctx, r, acct); err != nil {
			return err
		}
		acct.Status = domain.StatusActive
		if err := r.Escrows.Save(ctx, acct); err != nil {
			return err
		}
		res = &VerifyResult{
			Reference:  reference,
			EscrowID:   acct.EscrowID,
			AmountHeld: acct.AmountHeld,
			Status:     string(acct.Status),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		e.log.Error("funding rejected after settlement, manual refund required",
			zap.String("reference", reference),
			zap.Error(rejected),
		)
		return nil, rejected
	}
	if !res.Duplicate {
		metrics.EscrowTransitionsTotal.WithLabelValues(string(domain.StatusActive)).Inc()
		e.log.Info("escrow funded",
			zap.String("reference", reference),
			zap.String("escrow_id", res.EscrowID),
			zap.String("amount_held", res.AmountHeld.StringFixed(2)),
		)
	}
	return res, nil
}

// settledAsFailed answers a redelivered confirmation for an entry that was
// already closed without moving money. The sender only needs to stop retrying.
func (e *Engine) settledAsFailed(t *domain.Transaction) *VerifyResult {
	e.log.Warn("confirmation for a closed funding entry ignored",
		zap.String("reference", t.Reference),
		zap.String("status", string(t.Status)),
	)
	return &VerifyResult{Reference: t.Reference, Duplicate: true}
}
