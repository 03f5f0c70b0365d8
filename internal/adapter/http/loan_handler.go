package http

import (
	"net/http"

	domain "sme-escrow/internal/domain/loan"
	"sme-escrow/internal/usecase/loan"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type LoanHandler struct{ uc *loan.Usecase }

func NewLoanHandler(uc *loan.Usecase) *LoanHandler { return &LoanHandler{uc: uc} }

type createLoanReq struct {
	Amount             decimal.Decimal `json:"amount" validate:"required,gt=0,lte=1000000000,dec2"`
	Currency           string          `json:"currency" validate:"omitempty,len=3"`
	InterestRate       decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=50,dec2"`
	TenureMonths       int             `json:"tenure_months" validate:"required,gte=1"`
	Purpose            string          `json:"purpose" validate:"required"`
	RepaymentFrequency string          `json:"repayment_frequency" validate:"omitempty,oneof=monthly quarterly bullet"`
}

type pitchReq struct {
	LenderID string `json:"lender_id" validate:"required,hex32"`
}

func (h *LoanHandler) CreateLoan(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	var req createLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	freq := domain.Frequency(req.RepaymentFrequency)
	if freq == "" {
		freq = domain.FrequencyMonthly
	}
	dto, err := h.uc.Create(c.Request().Context(), loan.CreateLoanInput{
		Actor:        p,
		Amount:       req.Amount,
		Currency:     req.Currency,
		InterestRate: req.InterestRate,
		TenureMonths: req.TenureMonths,
		Purpose:      req.Purpose,
		Frequency:    freq,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"), p)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Pitch(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	var req pitchReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.PitchToLender(c.Request().Context(), loan.PitchInput{LoanID: c.Param("loan_id"), Actor: p, LenderID: req.LenderID})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) Reject(c echo.Context) error {
	p, err := party(c)
	if err != nil {
		return err
	}
	dto, err := h.uc.RejectApplication(c.Request().Context(), loan.RejectInput{LoanID: c.Param("loan_id"), Actor: p})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
