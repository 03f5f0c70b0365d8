package http

import (
	"errors"
	"net/http"

	"sme-escrow/internal/domain/errs"
	"sme-escrow/internal/infrastructure/logging"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrAmountMismatch),
		errors.Is(err, errs.ErrAlreadyFunded),
		errors.Is(err, errs.ErrInsufficientFunds),
		errors.Is(err, errs.ErrUnsupportedFrequency):
		return http.StatusConflict
	case errors.Is(err, errs.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		resp.Error = "validation failed"
		resp.Details = []FieldError{{Field: ve.Field, Message: ve.Reason}}
	}
	if code == http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request failed", zap.Error(err))
		resp.Error = "internal error"
	}
	return c.JSON(code, resp)
}

func badBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}

// bindAndValidate decodes the body into req and runs the struct validator.
// It writes the error response itself and reports whether the caller may go on.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badBody(c)
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	return true, nil
}
