package http

import (
	"context"
	"net/http"

	"sme-escrow/internal/usecase/negotiation"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type NegotiationHandler struct{ uc *negotiation.Usecase }

func NewNegotiationHandler(uc *negotiation.Usecase) *NegotiationHandler {
	return &NegotiationHandler{uc: uc}
}

type offerReq struct {
	ProposedRate decimal.Decimal `json:"proposed_rate" validate:"gte=0,lte=50,dec2"`
	Message      string          `json:"message" validate:"max=2000"`
}

func (h *NegotiationHandler) ListOffers(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	out, err := h.uc.ListThread(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"offers": out})
}

func (h *NegotiationHandler) CreateOffer(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	var req offerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.CreateOffer(c.Request().Context(), negotiation.CreateOfferInput{
		LoanID:  c.Param("loan_id"),
		Actor:   p,
		Rate:    req.ProposedRate,
		Message: req.Message,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *NegotiationHandler) Counter(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	var req offerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.CounterOffer(c.Request().Context(), negotiation.CounterInput{
		OfferID: c.Param("offer_id"),
		Actor:   p,
		Rate:    req.ProposedRate,
		Message: req.Message,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *NegotiationHandler) Accept(c echo.Context) error {
	return h.respond(c, h.uc.AcceptOffer)
}

func (h *NegotiationHandler) Reject(c echo.Context) error {
	return h.respond(c, h.uc.RejectOffer)
}

func (h *NegotiationHandler) respond(c echo.Context, fn func(ctx context.Context, in negotiation.RespondInput) (*negotiation.OfferDTO, error)) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := fn(c.Request().Context(), negotiation.RespondInput{OfferID: c.Param("offer_id"), Actor: p})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
