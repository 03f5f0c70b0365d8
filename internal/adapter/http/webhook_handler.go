package http

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"sme-escrow/internal/usecase/webhook"

	"github.com/labstack/echo/v4"
)

const HeaderPaystackSignature = "X-Paystack-Signature"

type WebhookHandler struct {
	uc     *webhook.Usecase
	secret []byte
}

// NewWebhookHandler checks signatures only when secret is non-empty.
func NewWebhookHandler(uc *webhook.Usecase, secret string) *WebhookHandler {
	return &WebhookHandler{uc: uc, secret: []byte(secret)}
}

func (h *WebhookHandler) Paystack(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return badBody(c)
	}
	if len(h.secret) > 0 && !validSignature(h.secret, body, c.Request().Header.Get(HeaderPaystackSignature)) {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
	}
	var ev webhook.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return badBody(c)
	}
	out, err := h.uc.HandleEvent(c.Request().Context(), ev)
	if err != nil {
		if code := statusFor(err); code == http.StatusUnprocessableEntity {
			// gateways only distinguish accepted from not
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func validSignature(secret, body []byte, got string) bool {
	sig, err := hex.DecodeString(got)
	if err != nil || len(sig) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), sig)
}
