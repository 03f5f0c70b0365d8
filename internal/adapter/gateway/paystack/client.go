// Package paystack talks to the Paystack REST API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sme-escrow/internal/domain/payment"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.paystack.co"

var _ payment.Gateway = (*Client)(nil)

type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        *http.Client
}

type Options struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func New(o Options) *Client {
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, secretKey: o.SecretKey, callbackURL: o.CallbackURL, http: hc}
}

// envelope is the common shape of every Paystack response.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) InitializeTransaction(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	body := map[string]any{
		"email":     req.Email,
		"amount":    toKobo(req.Amount),
		"reference": req.Reference,
		"currency":  req.Currency,
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, payment.OpInitialize, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, payment.Fail(payment.OpInitialize, "missing authorization_url", nil)
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &payment.Charge{AuthorizationURL: data.AuthorizationURL, AccessCode: data.AccessCode, Reference: ref}, nil
}

func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*payment.Verification, error) {
	var raw json.RawMessage
	if err := c.do(ctx, payment.OpVerify, http.MethodGet, "/transaction/verify/"+reference, nil, &raw); err != nil {
		return nil, err
	}
	var data struct {
		Status    string `json:"status"`
		Amount    *int64 `json:"amount"`
		Currency  string `json:"currency"`
		Reference string `json:"reference"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, payment.Fail(payment.OpVerify, "malformed data", err)
	}
	if data.Status != "success" {
		return nil, payment.Fail(payment.OpVerify, fmt.Sprintf("charge status is %q", data.Status), nil)
	}
	if data.Amount == nil {
		return nil, payment.Fail(payment.OpVerify, "missing amount", nil)
	}
	return &payment.Verification{
		Reference: reference,
		Amount:    fromKobo(*data.Amount),
		Currency:  data.Currency,
		Payload:   raw,
	}, nil
}

func (c *Client) CreatePayoutRecipient(ctx context.Context, req payment.RecipientRequest) (*payment.Recipient, error) {
	body := map[string]any{
		"type":           "nuban",
		"name":           req.Name,
		"account_number": req.AccountNumber,
		"bank_code":      req.BankCode,
		"currency":       req.Currency,
	}
	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.do(ctx, payment.OpRecipient, http.MethodPost, "/transferrecipient", body, &data); err != nil {
		return nil, err
	}
	if data.RecipientCode == "" {
		return nil, payment.Fail(payment.OpRecipient, "missing recipient_code", nil)
	}
	return &payment.Recipient{Code: data.RecipientCode}, nil
}

func (c *Client) TransferToRecipient(ctx context.Context, req payment.TransferRequest) (*payment.Transfer, error) {
	body := map[string]any{
		"source":    "balance",
		"amount":    toKobo(req.Amount),
		"recipient": req.RecipientCode,
		"reason":    req.Reason,
		"reference": req.Reference,
		"currency":  req.Currency,
	}
	var data struct {
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
		Status       string `json:"status"`
	}
	if err := c.do(ctx, payment.OpTransfer, http.MethodPost, "/transfer", body, &data); err != nil {
		return nil, err
	}
	if data.Status == "failed" || data.Status == "reversed" {
		return nil, payment.Fail(payment.OpTransfer, "transfer "+data.Status, nil)
	}
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &payment.Transfer{Code: data.TransferCode, Reference: ref, Status: data.Status}, nil
}

// do sends one request and decodes envelope.data into out.
func (c *Client) do(ctx context.Context, op, method, path string, in any, out any) error {
	var rdr io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return payment.Fail(op, "encode request", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return payment.Fail(op, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return payment.Fail(op, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return payment.Fail(op, "read response", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return payment.Fail(op, fmt.Sprintf("malformed response (http %d)", resp.StatusCode), err)
	}
	if resp.StatusCode/100 != 2 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return payment.Fail(op, msg, nil)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return payment.Fail(op, "missing data", nil)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return payment.Fail(op, "malformed data", err)
	}
	return nil
}

// Paystack amounts are integers in the currency's minor unit.
func toKobo(amount decimal.Decimal) int64 { return amount.Shift(2).Round(0).IntPart() }

func fromKobo(kobo int64) decimal.Decimal { return decimal.New(kobo, -2) }
