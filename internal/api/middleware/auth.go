package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-service/internal/infrastructure/security"
)

// Context keys set by Auth.
const (
	CtxAccountID = "account_id"
	CtxEmail     = "email"
	CtxName      = "name"
	CtxRoles     = "roles"
	CtxClaims    = "claims"
)

// TokenParser verifies an access token and returns its claims.
type TokenParser interface {
	ParseAccessToken(token string) (*security.AccessClaims, error)
}

// Auth validates the bearer token and injects its claims into context.
func Auth(parser TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := parser.ParseAccessToken(parts[1])
			if err != nil || claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(CtxAccountID, claims.Subject)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxName, claims.Name)
			c.Set(CtxRoles, claims.RoleList())
			c.Set(CtxClaims, claims)

			return next(c)
		}
	}
}
