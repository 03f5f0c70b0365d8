// Package mockgw is a deterministic in-process payment gateway for
// non-production deployments and tests. Every call succeeds with synthetic
// codes unless a failure was injected for its operation.
package mockgw

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"sme-escrow/internal/domain/payment"

	"github.com/shopspring/decimal"
)

var _ payment.Gateway = (*Gateway)(nil)

type Gateway struct {
	checkoutURL string

	mu        sync.Mutex
	charges   map[string]decimal.Decimal
	overrides map[string]decimal.Decimal
	failures  map[string]string
	calls     map[string]int
}

func New(checkoutURL string) *Gateway {
	if checkoutURL == "" {
		checkoutURL = "https://checkout.mock.local/pay/"
	}
	return &Gateway{
		checkoutURL: checkoutURL,
		charges:     map[string]decimal.Decimal{},
		overrides:   map[string]decimal.Decimal{},
		failures:    map[string]string{},
		calls:       map[string]int{},
	}
}

// FailOn makes every call of op fail with reason until cleared with "".
func (g *Gateway) FailOn(op, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if reason == "" {
		delete(g.failures, op)
		return
	}
	g.failures[op] = reason
}

// SettleWith makes verification of reference report amount instead of the charged one.
func (g *Gateway) SettleWith(reference string, amount decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.overrides[reference] = amount
}

// Calls returns how often op was invoked.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *Gateway) begin(op string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
	if reason, ok := g.failures[op]; ok {
		return payment.Fail(op, reason, nil)
	}
	return nil
}

func (g *Gateway) InitializeTransaction(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	if err := g.begin(payment.OpInitialize); err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.charges[req.Reference] = req.Amount
	g.mu.Unlock()
	return &payment.Charge{
		AuthorizationURL: g.checkoutURL + req.Reference,
		AccessCode:       "mock_" + strings.ToLower(req.Reference),
		Reference:        req.Reference,
	}, nil
}

func (g *Gateway) VerifyTransaction(ctx context.Context, reference string) (*payment.Verification, error) {
	if err := g.begin(payment.OpVerify); err != nil {
		return nil, err
	}
	g.mu.Lock()
	amount, ok := g.overrides[reference]
	if !ok {
		amount, ok = g.charges[reference]
	}
	g.mu.Unlock()
	if !ok {
		return nil, payment.Fail(payment.OpVerify, "unknown reference "+reference, nil)
	}
	payload, _ := json.Marshal(map[string]any{
		"status":    "success",
		"reference": reference,
		"amount":    amount.Shift(2).IntPart(),
		"currency":  "NGN",
		"gateway":   "mock",
	})
	return &payment.Verification{Reference: reference, Amount: amount, Currency: "NGN", Payload: payload}, nil
}

func (g *Gateway) CreatePayoutRecipient(ctx context.Context, req payment.RecipientRequest) (*payment.Recipient, error) {
	if err := g.begin(payment.OpRecipient); err != nil {
		return nil, err
	}
	return &payment.Recipient{Code: "RCP_MOCK_" + req.BankCode + "_" + req.AccountNumber}, nil
}

func (g *Gateway) TransferToRecipient(ctx context.Context, req payment.TransferRequest) (*payment.Transfer, error) {
	if err := g.begin(payment.OpTransfer); err != nil {
		return nil, err
	}
	return &payment.Transfer{Code: "TRF_MOCK_" + req.Reference, Reference: req.Reference, Status: "success"}, nil
}
