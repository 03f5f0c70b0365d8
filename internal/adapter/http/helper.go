package http

import (
	"net/http"

	"sme-escrow/internal/adapter/middleware"
	"sme-escrow/internal/domain/actor"

	"github.com/labstack/echo/v4"
)

// party returns the caller identity set by the actor middleware. Routes are
// always mounted behind it, so a miss is a wiring bug.
func party(c echo.Context) (actor.Party, error) {
	p, ok := middleware.ActorFrom(c)
	if !ok {
		return actor.Party{}, echo.NewHTTPError(http.StatusUnauthorized, "missing actor")
	}
	return p, nil
}
