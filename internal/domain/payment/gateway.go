// Package payment defines the port to the external payment processor.
// Every call returns a typed success value or a *Failure.
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"sme-escrow/internal/domain/errs"

	"github.com/shopspring/decimal"
)

type Gateway interface {
	InitializeTransaction(ctx context.Context, req ChargeRequest) (*Charge, error)
	VerifyTransaction(ctx context.Context, reference string) (*Verification, error)
	CreatePayoutRecipient(ctx context.Context, req RecipientRequest) (*Recipient, error)
	TransferToRecipient(ctx context.Context, req TransferRequest) (*Transfer, error)
}

type ChargeRequest struct {
	Email     string
	Amount    decimal.Decimal
	Currency  string
	Reference string
}

type Charge struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type Verification struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	// Payload is the gateway's raw data object, stored on the ledger entry.
	Payload json.RawMessage
}

type RecipientRequest struct {
	Name          string
	AccountNumber string
	BankCode      string
	Currency      string
}

type Recipient struct {
	Code string
}

type TransferRequest struct {
	Amount        decimal.Decimal
	RecipientCode string
	Reason        string
	Reference     string
	Currency      string
}

type Transfer struct {
	Code      string
	Reference string
	Status    string
}

// Operation names used in failures, logs and metrics.
const (
	OpInitialize = "initialize_transaction"
	OpVerify     = "verify_transaction"
	OpRecipient  = "create_recipient"
	OpTransfer   = "transfer"
)

// Failure is the error variant of every gateway call.
type Failure struct {
	Op     string
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Reason)
}

func (f *Failure) Unwrap() []error {
	if f.Err != nil {
		return []error{errs.ErrGateway, f.Err}
	}
	return []error{errs.ErrGateway}
}

func Fail(op, reason string, err error) *Failure {
	return &Failure{Op: op, Reason: reason, Err: err}
}
