package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// Context keys set by Auth.
const (
	CtxAccountID = "account_id"
	CtxUsername  = "username"
	CtxRole      = "role"
)

// Auth validates the JWT and injects the caller identity into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			accountID, _ := claims[CtxAccountID].(string)
			if accountID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing account identity")
			}
			role, _ := claims[CtxRole].(string)
			username, _ := claims[CtxUsername].(string)

			c.Set(CtxAccountID, domain.AccountID(accountID))
			c.Set(CtxUsername, username)
			c.Set(CtxRole, domain.Role(role))

			return next(c)
		}
	}
}
