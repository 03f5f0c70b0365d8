package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"sme-escrow/internal/adapter/bankdir"
	"sme-escrow/internal/adapter/gateway/mockgw"
	"sme-escrow/internal/adapter/middleware"
	"sme-escrow/internal/adapter/repository/mysql"
	"sme-escrow/internal/testutil/dbtest"
	"sme-escrow/internal/usecase/escrow"
	"sme-escrow/internal/usecase/loan"
	"sme-escrow/internal/usecase/negotiation"
	"sme-escrow/internal/usecase/repayment"
	"sme-escrow/internal/usecase/webhook"
	"sme-escrow/pkg/id"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	e      *echo.Echo
	gw     *mockgw.Gateway
	sme    string
	lender string
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db := dbtest.Open(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	banks := bankdir.New(rdb)
	require.NoError(t, banks.Set(context.Background(), "Access Bank", "044"))

	loans := mysql.NewLoanRepository(db)
	tx := mysql.NewGormUoW(db)
	gw := mockgw.New("")
	sched := repayment.NewScheduler(loans, mysql.NewRepaymentRepository(db), tx, repayment.Options{}, nil)
	engine := escrow.NewEngine(escrow.Deps{
		Loans:         loans,
		Accounts:      mysql.NewEscrowRepository(db),
		Transactions:  mysql.NewTransactionRepository(db),
		Disbursements: mysql.NewDisbursementRepository(db),
		UoW:           tx,
		Gateway:       gw,
		Banks:         banks,
		Payees:        mysql.NewProfileReader(db),
		Schedule:      sched,
	}, escrow.Options{GatewayTimeout: time.Second}, nil)

	e := echo.New()
	e.Validator = NewValidator()
	Register(e, Routes{
		Health:      NewHandler(nil),
		Loans:       NewLoanHandler(loan.NewUsecase(loans, tx, nil)),
		Negotiation: NewNegotiationHandler(negotiation.NewUsecase(loans, mysql.NewOfferRepository(db), tx, nil)),
		Escrow:      NewEscrowHandler(engine),
		Repayments:  NewRepaymentHandler(sched),
		Webhooks:    NewWebhookHandler(webhook.NewUsecase(engine, nil), ""),
		Idempotency: middleware.Idempotency(rdb, time.Hour, nil),
	})

	f := &apiFixture{e: e, gw: gw, sme: id.NewID32(), lender: id.NewID32()}
	dbtest.SeedProfile(t, db, f.sme, "0123456789", "Ada Foods Ltd", "Access Bank")
	return f
}

// do sends a request as kind/pid. POSTs get a fresh idempotency key unless
// key is given.
func (f *apiFixture) do(t *testing.T, method, path, kind, pid, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if kind != "" {
		req.Header.Set(middleware.HeaderActorType, kind)
		req.Header.Set(middleware.HeaderActorID, pid)
	}
	if method == http.MethodPost {
		if key == "" {
			key = id.NewID32()
		}
		req.Header.Set(middleware.HeaderIdempotencyKey, key)
		req.Header.Set(middleware.HeaderRequestAt, strconv.FormatInt(time.Now().Unix(), 10))
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAPI_LoanToRepayment(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodPost, "/loans", "sme", f.sme,
		`{"amount":"100000","interest_rate":"15","tenure_months":12,"purpose":"cold room","repayment_frequency":"monthly"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loanID := decode[loan.LoanDTO](t, rec).LoanID
	base := "/loans/" + loanID

	rec = f.do(t, http.MethodPost, base+"/pitch", "sme", f.sme, `{"lender_id":"`+f.lender+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, base+"/offers", "lender", f.lender, `{"proposed_rate":"12","message":"12% and we fund this week"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	offerID := decode[negotiation.OfferDTO](t, rec).OfferID

	rec = f.do(t, http.MethodGet, base+"/offers", "sme", f.sme, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]negotiation.OfferDTO](t, rec)["offers"], 1)

	rec = f.do(t, http.MethodPost, "/offers/"+offerID+"/accept", "sme", f.sme, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "accepted", decode[negotiation.OfferDTO](t, rec).Status)

	rec = f.do(t, http.MethodPost, base+"/escrow", "lender", f.lender, "", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// disbursing an unfunded escrow is a conflict
	rec = f.do(t, http.MethodPost, base+"/disbursement", "lender", f.lender, "", "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	fundKey := id.NewID32()
	fundBody := `{"amount":"100000.00","payer_email":"treasury@lender.example"}`
	rec = f.do(t, http.MethodPost, base+"/escrow/fund", "lender", f.lender, fundBody, fundKey)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	funding := decode[escrow.FundingDTO](t, rec)
	assert.True(t, strings.HasPrefix(funding.Reference, "ESCROW_"), funding.Reference)

	// a retried request replays the first response instead of opening a second charge
	replay := f.do(t, http.MethodPost, base+"/escrow/fund", "lender", f.lender, fundBody, fundKey)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, funding.Reference, decode[escrow.FundingDTO](t, replay).Reference)

	hook := `{"event":"charge.success","data":{"reference":"` + funding.Reference + `"}}`
	rec = f.do(t, http.MethodPost, "/webhooks/paystack", "", "", hook, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, webhook.Processed, decode[webhook.Outcome](t, rec).Result)
	rec = f.do(t, http.MethodPost, "/webhooks/paystack", "", "", hook, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, webhook.Duplicate, decode[webhook.Outcome](t, rec).Result)

	rec = f.do(t, http.MethodGet, base+"/escrow", "sme", f.sme, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	acct := decode[escrow.AccountDTO](t, rec)
	assert.Equal(t, "active", acct.Status)
	assert.Equal(t, "100000.00", acct.AmountHeld.StringFixed(2))

	rec = f.do(t, http.MethodPost, base+"/disbursement", "lender", f.lender, "", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	disb := decode[escrow.DisbursementDTO](t, rec)
	assert.Equal(t, "completed", disb.Status)
	assert.Equal(t, "RCP_MOCK_044_0123456789", disb.RecipientCode)

	rec = f.do(t, http.MethodGet, base+"/disbursement", "sme", f.sme, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, base+"/schedule", "sme", f.sme, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	plan := decode[map[string][]repayment.InstallmentDTO](t, rec)["installments"]
	require.Len(t, plan, 12)
	assert.Equal(t, "9333.33", plan[0].TotalAmount.StringFixed(2))

	rec = f.do(t, http.MethodPost, base+"/installments/1/repay", "sme", f.sme, `{"amount":"9000"}`, "")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, base+"/installments/1/repay", "sme", f.sme, `{"amount":"9333.33"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paid := decode[repayment.RepaymentDTO](t, rec)
	assert.Equal(t, "paid", paid.Installment.Status)
	assert.Equal(t, "active", paid.LoanStatus)

	rec = f.do(t, http.MethodPost, base+"/installments/x/repay", "sme", f.sme, `{"amount":"1"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_PublicAndProtectedRoutes(t *testing.T) {
	f := newAPI(t)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", "", "", "").Code)
	metrics := f.do(t, http.MethodGet, "/metrics", "", "", "", "")
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "sme_escrow_installments_overdue_total")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/loans/"+id.NewID32(), "", "", "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/loans/"+id.NewID32(), "sme", f.sme, "", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/offers/"+id.NewID32()+"/accept", "sme", f.sme, "", "").Code)
}
