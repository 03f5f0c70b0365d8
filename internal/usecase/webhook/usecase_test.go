package webhook

import (
	"context"
	"errors"
	"testing"

	"sme-escrow/internal/domain/errs"
	ledger "sme-escrow/internal/domain/escrow"
	"sme-escrow/internal/domain/payment"
	"sme-escrow/internal/usecase/escrow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, ref string) (*escrow.VerifyResult, error)

func (f verifierFunc) VerifyFunding(ctx context.Context, ref string) (*escrow.VerifyResult, error) {
	return f(ctx, ref)
}

func event(name, ref string) Event {
	var ev Event
	ev.Event = name
	ev.Data.Reference = ref
	return ev
}

func TestHandleEvent_Processed(t *testing.T) {
	var got string
	uc := NewUsecase(verifierFunc(func(_ context.Context, ref string) (*escrow.VerifyResult, error) {
		got = ref
		return &escrow.VerifyResult{Reference: ref}, nil
	}), nil)

	out, err := uc.HandleEvent(context.Background(), event(EventChargeSuccess, " ESCROW_ABC "))
	require.NoError(t, err)
	assert.Equal(t, "ESCROW_ABC", got)
	assert.Equal(t, Processed, out.Result)
}

func TestHandleEvent_Duplicate(t *testing.T) {
	uc := NewUsecase(verifierFunc(func(_ context.Context, ref string) (*escrow.VerifyResult, error) {
		return &escrow.VerifyResult{Reference: ref, Duplicate: true}, nil
	}), nil)

	out, err := uc.HandleEvent(context.Background(), event(EventChargeSuccess, "ESCROW_ABC"))
	require.NoError(t, err)
	assert.Equal(t, Duplicate, out.Result)
}

func TestHandleEvent_Rejects(t *testing.T) {
	called := false
	uc := NewUsecase(verifierFunc(func(context.Context, string) (*escrow.VerifyResult, error) {
		called = true
		return nil, nil
	}), nil)

	_, err := uc.HandleEvent(context.Background(), event("transfer.success", "ESCROW_ABC"))
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = uc.HandleEvent(context.Background(), event(EventChargeSuccess, ""))
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.False(t, called)
}

func TestOnPaymentConfirmed_PropagatesErrors(t *testing.T) {
	cases := []error{
		ledger.ErrTransactionNotFound,
		payment.Fail(payment.OpVerify, "timeout", nil),
		errs.ErrAmountMismatch,
	}
	for _, want := range cases {
		uc := NewUsecase(verifierFunc(func(context.Context, string) (*escrow.VerifyResult, error) {
			return nil, want
		}), nil)
		_, err := uc.OnPaymentConfirmed(context.Background(), "ESCROW_ABC")
		assert.True(t, errors.Is(err, want), "got %v", err)
	}
}

func TestFailureLabel(t *testing.T) {
	assert.Equal(t, "not_found", failureLabel(ledger.ErrTransactionNotFound))
	assert.Equal(t, "gateway_error", failureLabel(payment.Fail(payment.OpVerify, "x", nil)))
	assert.Equal(t, "invalid", failureLabel(errs.Invalid("reference", "is required")))
	assert.Equal(t, "rejected", failureLabel(errs.ErrAlreadyFunded))
}
