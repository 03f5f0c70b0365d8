package http

import (
	"sme-escrow/internal/adapter/middleware"
	"sme-escrow/internal/infrastructure/metrics"

	"github.com/labstack/echo/v4"
)

type Routes struct {
	Health      *Handler
	Loans       *LoanHandler
	Negotiation *NegotiationHandler
	Escrow      *EscrowHandler
	Repayments  *RepaymentHandler
	Webhooks    *WebhookHandler
	Idempotency echo.MiddlewareFunc // optional
}

// Register mounts the API. Everything except health, metrics and the
// gateway webhook requires an actor identity.
func Register(e *echo.Echo, r Routes) {
	e.GET("/health", r.Health.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.POST("/webhooks/paystack", r.Webhooks.Paystack)

	mw := []echo.MiddlewareFunc{middleware.Actor()}
	if r.Idempotency != nil {
		mw = append(mw, r.Idempotency)
	}
	api := e.Group("", mw...)

	api.POST("/loans", r.Loans.CreateLoan)
	api.GET("/loans/:loan_id", r.Loans.GetLoan)
	api.POST("/loans/:loan_id/pitch", r.Loans.Pitch)
	api.POST("/loans/:loan_id/reject", r.Loans.Reject)

	api.GET("/loans/:loan_id/offers", r.Negotiation.ListOffers)
	api.POST("/loans/:loan_id/offers", r.Negotiation.CreateOffer)
	api.POST("/offers/:offer_id/counter", r.Negotiation.Counter)
	api.POST("/offers/:offer_id/accept", r.Negotiation.Accept)
	api.POST("/offers/:offer_id/reject", r.Negotiation.Reject)

	api.POST("/loans/:loan_id/escrow", r.Escrow.CreateEscrow)
	api.GET("/loans/:loan_id/escrow", r.Escrow.GetEscrow)
	api.POST("/loans/:loan_id/escrow/fund", r.Escrow.Fund)
	api.POST("/loans/:loan_id/disbursement", r.Escrow.Disburse)
	api.GET("/loans/:loan_id/disbursement", r.Escrow.GetDisbursement)

	api.GET("/loans/:loan_id/schedule", r.Repayments.Schedule)
	api.POST("/loans/:loan_id/installments/:number/repay", r.Repayments.Repay)
}
