// Package webhook reconciles asynchronous payment confirmations with the
// escrow ledger.
package webhook

import (
	"context"
	"errors"
	"strings"

	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/infrastructure/logging"
	"sme-escrow/internal/infrastructure/metrics"
	"sme-escrow/internal/usecase/escrow"

	"go.uber.org/zap"
)

const EventChargeSuccess = "charge.success"

type Result string

const (
	Processed Result = "processed"
	Duplicate Result = "duplicate"
)

// Event is the part of a gateway notification the reconciler reads.
type Event struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

type Outcome struct {
	Reference string `json:"reference"`
	Result    Result `json:"result"`
}

// Verifier settles a funding reference. The escrow engine locks the ledger
// entry for the whole settlement, so concurrent deliveries queue up there.
type Verifier interface {
	VerifyFunding(ctx context.Context, reference string) (*escrow.VerifyResult, error)
}

type Usecase struct {
	verifier Verifier
	log      *zap.Logger
}

func NewUsecase(v Verifier, log *zap.Logger) *Usecase {
	return &Usecase{verifier: v, log: logging.OrNop(log)}
}

func (u *Usecase) HandleEvent(ctx context.Context, ev Event) (*Outcome, error) {
	if ev.Event != EventChargeSuccess {
		metrics.WebhookEventsTotal.WithLabelValues("ignored").Inc()
		return nil, errs.Invalid("event", "unsupported event "+ev.Event)
	}
	ref := strings.TrimSpace(ev.Data.Reference)
	if ref == "" {
		metrics.WebhookEventsTotal.WithLabelValues("invalid").Inc()
		return nil, errs.Invalid("data.reference", "is required")
	}
	return u.OnPaymentConfirmed(ctx, ref)
}

// OnPaymentConfirmed is idempotent: a reference that already settled
// reports Duplicate and changes nothing.
func (u *Usecase) OnPaymentConfirmed(ctx context.Context, reference string) (*Outcome, error) {
	res, err := u.verifier.VerifyFunding(ctx, reference)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(failureLabel(err)).Inc()
		u.log.Warn("payment confirmation not applied", zap.String("reference", reference), zap.Error(err))
		return nil, err
	}
	out := &Outcome{Reference: reference, Result: Processed}
	if res.Duplicate {
		out.Result = Duplicate
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(out.Result)).Inc()
	u.log.Info("payment confirmation handled", zap.String("reference", reference), zap.String("result", string(out.Result)))
	return out, nil
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrGateway):
		return "gateway_error"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	default:
		return "rejected"
	}
}
