package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/api/middleware"
	"github.com/99minutos/identity-service/internal/infrastructure/security"
)

// ctxAccountID returns the subject injected by the Auth middleware. A missing
// subject means the middleware did not run and is reported as 401.
func ctxAccountID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxAccountID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

func ctxClaims(c echo.Context) (*security.AccessClaims, error) {
	claims, _ := c.Get(middleware.CtxClaims).(*security.AccessClaims)
	if claims == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}
