// Package gateway selects and instruments the payment gateway implementation.
package gateway

import (
	"context"
	"fmt"
	"time"

	"sme-escrow/internal/adapter/gateway/mockgw"
	"sme-escrow/internal/adapter/gateway/paystack"
	"sme-escrow/internal/domain/payment"
	"sme-escrow/internal/infrastructure/metrics"
)

const (
	ProviderPaystack = "paystack"
	ProviderMock     = "mock"
)

type Settings struct {
	Provider    string
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
}

// New builds the configured gateway. The choice is made once, here.
func New(s Settings) (payment.Gateway, error) {
	var g payment.Gateway
	switch s.Provider {
	case ProviderPaystack:
		if s.SecretKey == "" {
			return nil, fmt.Errorf("gateway %q requires a secret key", s.Provider)
		}
		g = paystack.New(paystack.Options{
			BaseURL:     s.BaseURL,
			SecretKey:   s.SecretKey,
			CallbackURL: s.CallbackURL,
			Timeout:     s.Timeout,
		})
	case ProviderMock:
		g = mockgw.New("")
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", s.Provider)
	}
	return Instrument(g), nil
}

// Instrument wraps g so every call is counted and timed.
func Instrument(g payment.Gateway) payment.Gateway { return &instrumented{next: g} }

type instrumented struct{ next payment.Gateway }

func (i *instrumented) InitializeTransaction(ctx context.Context, req payment.ChargeRequest) (out *payment.Charge, err error) {
	defer func(start time.Time) { metrics.ObserveGateway(payment.OpInitialize, start, err) }(time.Now())
	return i.next.InitializeTransaction(ctx, req)
}

func (i *instrumented) VerifyTransaction(ctx context.Context, reference string) (out *payment.Verification, err error) {
	defer func(start time.Time) { metrics.ObserveGateway(payment.OpVerify, start, err) }(time.Now())
	return i.next.VerifyTransaction(ctx, reference)
}

func (i *instrumented) CreatePayoutRecipient(ctx context.Context, req payment.RecipientRequest) (out *payment.Recipient, err error) {
	defer func(start time.Time) { metrics.ObserveGateway(payment.OpRecipient, start, err) }(time.Now())
	return i.next.CreatePayoutRecipient(ctx, req)
}

func (i *instrumented) TransferToRecipient(ctx context.Context, req payment.TransferRequest) (out *payment.Transfer, err error) {
	defer func(start time.Time) { metrics.ObserveGateway(payment.OpTransfer, start, err) }(time.Now())
	return i.next.TransferToRecipient(ctx, req)
}
