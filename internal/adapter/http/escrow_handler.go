package http

import (
	"net/http"

	"sme-escrow/internal/usecase/escrow"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type EscrowHandler struct{ engine *escrow.Engine }

func NewEscrowHandler(e *escrow.Engine) *EscrowHandler { return &EscrowHandler{engine: e} }

type fundReq struct {
	Amount     decimal.Decimal `json:"amount" validate:"required,gt=0,dec2"`
	PayerEmail string          `json:"payer_email" validate:"required,email"`
}

func (h *EscrowHandler) CreateEscrow(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := h.engine.CreateEscrowAccount(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *EscrowHandler) GetEscrow(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := h.engine.GetEscrow(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Fund starts a lender payment; the ledger moves only when the gateway
// confirms it through the webhook.
func (h *EscrowHandler) Fund(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	var req fundReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.engine.InitializeFunding(c.Request().Context(), escrow.FundingInput{
		LoanID:     c.Param("loan_id"),
		Actor:      p,
		Amount:     req.Amount,
		PayerEmail: req.PayerEmail,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *EscrowHandler) Disburse(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := h.engine.InitiateDisbursement(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *EscrowHandler) GetDisbursement(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := h.engine.GetDisbursement(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
