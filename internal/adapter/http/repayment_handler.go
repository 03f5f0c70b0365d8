package http

import (
	"net/http"
	"strconv"

	"sme-escrow/internal/usecase/repayment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type RepaymentHandler struct{ s *repayment.Scheduler }

func NewRepaymentHandler(s *repayment.Scheduler) *RepaymentHandler { return &RepaymentHandler{s: s} }

type repayReq struct {
	Amount decimal.Decimal `json:"amount" validate:"required,gt=0,dec2"`
}

func (h *RepaymentHandler) Schedule(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	out, err := h.s.GetSchedule(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"installments": out})
}

func (h *RepaymentHandler) Repay(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid installment number"})
	}
	var req repayReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.s.MakeRepayment(c.Request().Context(), repayment.RepayInput{
		LoanID: c.Param("loan_id"),
		Number: n,
		Actor:  p,
		Amount: req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}
