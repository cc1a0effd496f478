package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lumin-energy/energy-ledger/internal/api/middleware"
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// callerFrom extracts the account identity injected by the Auth middleware.
// Its presence proves the middleware ran.
func callerFrom(c echo.Context) (domain.AccountID, error) {
	id, _ := c.Get(middleware.CtxAccountID).(domain.AccountID)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// idParam reads a positive integer path parameter.
func idParam(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

// panelParam reads the panel_id path parameter. Panel IDs are chosen by the
// owner, so 0 is valid.
func panelParam(c echo.Context) (uint64, error) {
	n, err := strconv.ParseUint(c.Param("panel_id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid panel_id")
	}
	return n, nil
}

// bindAndValidate decodes the request body into req and runs struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil
}
