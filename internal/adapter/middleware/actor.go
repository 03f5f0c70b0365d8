package middleware

import (
	"net/http"
	"strings"

	"sme-escrow/internal/domain/actor"

	"github.com/labstack/echo/v4"
)

const (
	HeaderActorType = "X-Actor-Type"
	HeaderActorID   = "X-Actor-Id"

	actorKey = "actor"
)

// Actor reads the identity asserted by the upstream gateway. Requests
// without a well-formed identity never reach a handler.
func Actor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header
			kind := strings.ToLower(strings.TrimSpace(h.Get(HeaderActorType)))
			pid := strings.TrimSpace(h.Get(HeaderActorID))
			if kind == "" || pid == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing " + HeaderActorType + " or " + HeaderActorID})
			}
			p, err := actor.ParseParty(kind, pid)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
			}
			c.Set(actorKey, p)
			return next(c)
		}
	}
}

// ActorFrom returns the party stored by Actor.
func ActorFrom(c echo.Context) (actor.Party, bool) {
	p, ok := c.Get(actorKey).(actor.Party)
	return p, ok
}
