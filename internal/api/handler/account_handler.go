package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

// AccountHandler serves account registration, balances, panels and trade history.
type AccountHandler struct {
	identity ports.IdentityService
	assets   ports.AssetService
	market   ports.MarketService
}

func NewAccountHandler(identity ports.IdentityService, assets ports.AssetService, market ports.MarketService) *AccountHandler {
	return &AccountHandler{identity: identity, assets: assets, market: market}
}

// Register handles POST /v1/accounts.
//
// @Summary      Register an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      registerAccountRequest  true  "Account details"
// @Success      201   {object}  accountCreatedResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	hash, err := req.digest()
	if err != nil {
		return err
	}

	id, err := h.identity.Register(c.Request().Context(), domain.RegisterAccount{
		Caller:         domain.AccountID(req.AccountID),
		Username:       req.Username,
		FullName:       req.FullName,
		CredentialHash: hash,
		IsManager:      req.IsManager,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, accountCreatedResponse{AccountID: id})
}

// Get handles GET /v1/accounts/:id.
//
// @Summary      Get an account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Account
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	acc, err := h.identity.GetAccount(domain.AccountID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acc)
}

// Balance handles GET /v1/accounts/:id/balance.
//
// @Summary      Get account balances
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  domain.Balances
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/balance [get]
func (h *AccountHandler) Balance(c echo.Context) error {
	bal, err := h.identity.GetBalances(domain.AccountID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bal)
}

// RotateCredential handles PUT /v1/accounts/:id/credential.
//
// @Summary      Change the account password
// @Tags         accounts
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string                   true  "Account ID"
// @Param        body  body  rotateCredentialRequest  true  "Current and new password"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/accounts/{id}/credential [put]
func (h *AccountHandler) RotateCredential(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req rotateCredentialRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.identity.RotateCredential(c.Request().Context(), domain.RotateCredential{
		Caller:  caller,
		Account: domain.AccountID(c.Param("id")),
		Current: domain.HashPassword(req.CurrentPassword),
		Next:    domain.HashPassword(req.NewPassword),
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Panels handles GET /v1/accounts/:id/panels.
//
// @Summary      List an account's panels
// @Tags         panels
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {array}   domain.Panel
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/panels [get]
func (h *AccountHandler) Panels(c echo.Context) error {
	panels, err := h.assets.GetPanelsOf(domain.AccountID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, panels)
}

// AddPanel handles POST /v1/accounts/:id/panels. The caller must be the owner
// or the owner's manager.
//
// @Summary      Register a panel
// @Tags         panels
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string           true  "Owner account ID"
// @Param        body  body  addPanelRequest  true  "Panel reading"
// @Success      201
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts/{id}/panels [post]
func (h *AccountHandler) AddPanel(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req addPanelRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.assets.AddPanelToUser(c.Request().Context(), domain.AddPanel{
		Caller:     caller,
		Owner:      domain.AccountID(c.Param("id")),
		PanelID:    *req.PanelID,
		Capacity:   req.Capacity,
		Location:   req.Location,
		Produced:   req.Produced,
		Consumed:   req.Consumed,
		Efficiency: req.Efficiency,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

// Allocate handles POST /v1/accounts/:id/panels/:panel_id/allocations.
//
// @Summary      Store purchased energy on a panel
// @Tags         panels
// @Accept       json
// @Security     BearerAuth
// @Param        id        path  string                 true  "Owner account ID"
// @Param        panel_id  path  int                    true  "Panel ID"
// @Param        body      body  allocateEnergyRequest  true  "Quantity"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/accounts/{id}/panels/{panel_id}/allocations [post]
func (h *AccountHandler) Allocate(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	panelID, err := panelParam(c)
	if err != nil {
		return err
	}
	var req allocateEnergyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.assets.AllocateEnergy(c.Request().Context(), domain.AllocateEnergy{
		Caller:   caller,
		Owner:    domain.AccountID(c.Param("id")),
		PanelID:  panelID,
		Quantity: req.Quantity,
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Trades handles GET /v1/accounts/:id/trades.
//
// @Summary      List trades the account took part in
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account ID"
// @Success      200  {array}   domain.Trade
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/trades [get]
func (h *AccountHandler) Trades(c echo.Context) error {
	trades, err := h.market.TradesOf(domain.AccountID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trades)
}

// Listings handles GET /v1/accounts/:id/listings.
//
// @Summary      List every listing the account posted
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Seller account ID"
// @Success      200  {array}   domain.Listing
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id}/listings [get]
func (h *AccountHandler) Listings(c echo.Context) error {
	listings, err := h.market.ListingsOf(domain.AccountID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listings)
}
