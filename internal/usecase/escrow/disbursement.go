package escrow

import (
	"context"
	"errors"
	"fmt"

	"sme-escrow/internal/domain/actor"
	"sme-escrow/internal/domain/errs"
	domain "sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/loan"
	"sme-escrow/internal/domain/payment"
	"sme-escrow/internal/domain/uow"
	"sme-escrow/internal/infrastructure/metrics"
	"sme-escrow/pkg/id"

	"go.uber.org/zap"
)

// InitiateDisbursement pays the escrowed principal out to the SME's bank
// account and activates the loan.
//
// It runs in three steps: claim the payout in one transaction, call the
// gateway with no transaction open, then record the outcome in a second
// transaction. A failed payout leaves the escrow untouched and the
// disbursement failed, so it can be retried with the same reference.
func (e *Engine) InitiateDisbursement(ctx context.Context, loanID string, p actor.Party) (*DisbursementDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// beneficiary lookup reads the profile store, so it stays outside the tx
	pre, err := e.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := e.disbursable(p, pre); err != nil {
		return nil, err
	}
	payee, err := e.beneficiary(ctx, pre.SMEID)
	if err != nil {
		return nil, err
	}

	var (
		d        *domain.Disbursement
		currency string
	)
	err = e.UoW.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Application) error {
		if err := e.disbursable(p, l); err != nil {
			return err
		}
		acct, err := r.Escrows.GetByLoanIDForUpdate(ctx, l.ID)
		if err != nil {
			return err
		}
		if acct.Status != domain.StatusActive {
			return fmt.Errorf("escrow %s is %s: %w", acct.EscrowID, acct.Status, errs.ErrInvalidTransition)
		}
		if acct.AmountHeld.LessThan(l.Amount) {
			return fmt.Errorf("escrow %s holds %s of %s: %w",
				acct.EscrowID, acct.AmountHeld.StringFixed(2), l.Amount.StringFixed(2), errs.ErrInsufficientFunds)
		}

		existing, err := r.Disbursements.GetByLoanID(ctx, l.ID)
		switch {
		case err == nil && existing.InFlight():
			return fmt.Errorf("disbursement %s is %s: %w", existing.Reference, existing.Status, errs.ErrInvalidTransition)
		case err == nil:
			d = existing
		case errors.Is(err, errs.ErrNotFound):
			d = &domain.Disbursement{
				LoanID:    l.ID,
				Reference: id.NewReference(id.PrefixDisbursement),
			}
		default:
			return err
		}

		currency = acct.Currency
		d.EscrowID = acct.ID
		d.Amount = l.Amount
		d.AccountNumber = payee.AccountNumber
		d.AccountName = payee.AccountName
		d.BankName = payee.BankName
		d.Status = domain.DisbursementProcessing
		d.FailureReason = ""
		if d.ID == 0 {
			return r.Disbursements.Create(ctx, d)
		}
		return r.Disbursements.Save(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	recipient, transfer, err := e.payout(ctx, loanID, currency, d)
	if err != nil {
		e.markFailed(ctx, loanID, d, err)
		return nil, err
	}

	var out *settled
	commit := func() error {
		return e.UoW.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Application) error {
			dto, err := e.settleDisbursement(ctx, r, l, *d, recipient, transfer)
			out = dto
			return err
		})
	}
	if err := commit(); err != nil {
		e.log.Warn("disbursement commit failed, retrying",
			zap.String("loan_id", loanID),
			zap.String("reference", d.Reference),
			zap.Error(err),
		)
		if err := commit(); err != nil {
			e.log.Error("payout sent but not recorded, manual reconciliation required",
				zap.String("loan_id", loanID),
				zap.String("reference", d.Reference),
				zap.String("transfer_code", transfer.Code),
				zap.Error(err),
			)
			return nil, err
		}
	}

	metrics.EscrowTransitionsTotal.WithLabelValues(out.escrowStatus).Inc()
	e.log.Info("loan disbursed",
		zap.String("loan_id", loanID),
		zap.String("reference", d.Reference),
		zap.String("amount", d.Amount.StringFixed(2)),
	)
	return out.DisbursementDTO, nil
}

func (e *Engine) disbursable(p actor.Party, l *loan.Application) error {
	if l.Status != loan.StatusApproved {
		return fmt.Errorf("loan %s is %s: %w", l.LoanID, l.Status, errs.ErrInvalidTransition)
	}
	if !isAssignedLender(p, l) {
		return fmt.Errorf("only the assigned lender can disburse loan %s: %w", l.LoanID, errs.ErrForbidden)
	}
	if !e.Schedule.Supports(l.Frequency) {
		return fmt.Errorf("repayment frequency %q: %w", l.Frequency, errs.ErrUnsupportedFrequency)
	}
	return nil
}

func (e *Engine) beneficiary(ctx context.Context, smeID string) (*domain.BankDetails, error) {
	payee, err := e.Payees.Beneficiary(ctx, smeID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.Invalid("bank_account_number", "no business profile on file")
	}
	if err != nil {
		return nil, err
	}
	if err := payee.Validate(); err != nil {
		return nil, err
	}
	return payee, nil
}

func (e *Engine) payout(ctx context.Context, loanID, currency string, d *domain.Disbursement) (*payment.Recipient, *payment.Transfer, error) {
	code, err := e.Banks.CodeFor(ctx, d.BankName)
	if err != nil {
		return nil, nil, err
	}

	gctx, cancel := e.gatewayCtx(ctx)
	recipient, err := e.Gateway.CreatePayoutRecipient(gctx, payment.RecipientRequest{
		Name:          d.AccountName,
		AccountNumber: d.AccountNumber,
		BankCode:      code,
		Currency:      currency,
	})
	cancel()
	if err != nil {
		e.logGatewayFailure(err, d.Reference, loanID)
		return nil, nil, err
	}

	gctx, cancel = e.gatewayCtx(ctx)
	transfer, err := e.Gateway.TransferToRecipient(gctx, payment.TransferRequest{
		Amount:        d.Amount,
		RecipientCode: recipient.Code,
		Reason:        "Loan disbursement " + loanID,
		Reference:     d.Reference,
		Currency:      currency,
	})
	cancel()
	if err != nil {
		e.logGatewayFailure(err, d.Reference, loanID)
		return nil, nil, err
	}
	return recipient, transfer, nil
}

// markFailed records why a payout did not go through. The escrow and loan
// are not touched.
func (e *Engine) markFailed(ctx context.Context, loanID string, d *domain.Disbursement, cause error) {
	d.Status = domain.DisbursementFailed
	d.FailureReason = failureReason(cause)
	err := e.UoW.WithinTx(ctx, func(r uow.Repos) error {
		return r.Disbursements.Save(ctx, d)
	})
	if err != nil {
		e.log.Error("could not mark disbursement failed",
			zap.String("loan_id", loanID),
			zap.String("reference", d.Reference),
			zap.Error(err),
		)
	}
}

func failureReason(err error) string {
	var f *payment.Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

type settled struct {
	*DisbursementDTO
	escrowStatus string
}

// settleDisbursement books a completed payout. d is a copy so a failed
// attempt leaves nothing behind for the retry.
func (e *Engine) settleDisbursement(ctx context.Context, r uow.Repos, l *loan.Application, d domain.Disbursement, recipient *payment.Recipient, transfer *payment.Transfer) (*settled, error) {
	acct, err := r.Escrows.GetByLoanIDForUpdate(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC()

	if err := r.Transactions.Create(ctx, &domain.Transaction{
		Reference:   d.Reference,
		EscrowID:    acct.ID,
		LoanID:      l.ID,
		Type:        domain.TxDisburse,
		Amount:      d.Amount,
		Currency:    acct.Currency,
		Status:      domain.TxCompleted,
		Description: fmt.Sprintf("Disbursement to %s (%s)", d.AccountName, d.BankName),
		CompletedAt: &now,
	}); err != nil {
		return nil, err
	}

	d.Status = domain.DisbursementCompleted
	d.RecipientCode = recipient.Code
	d.TransferCode = transfer.Code
	d.CompletedAt = &now
	if err := r.Disbursements.Save(ctx, &d); err != nil {
		return nil, err
	}

	if err := refold(ctx, r, acct); err != nil {
		return nil, err
	}
	if acct.AmountHeld.IsPositive() {
		acct.Status = domain.StatusActive
	} else {
		acct.Status = domain.StatusReleased
		acct.ReleasedAt = &now
	}
	if err := r.Escrows.Save(ctx, acct); err != nil {
		return nil, err
	}

	l.Status = loan.StatusActive
	l.DisbursementDate = &now
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}
	if _, err := e.Schedule.Generate(ctx, r, l); err != nil {
		return nil, err
	}
	return &settled{DisbursementDTO: toDisbursementDTO(l.LoanID, &d), escrowStatus: string(acct.Status)}, nil
}
