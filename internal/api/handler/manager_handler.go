package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

// ManagerHandler serves manager registration and the delegation views.
type ManagerHandler struct {
	identity   ports.IdentityService
	delegation ports.DelegationService
}

func NewManagerHandler(identity ports.IdentityService, delegation ports.DelegationService) *ManagerHandler {
	return &ManagerHandler{identity: identity, delegation: delegation}
}

// Register handles POST /v1/managers. Either the manager and every listed
// member are recorded, or nothing is.
//
// @Summary      Register a manager with members
// @Tags         managers
// @Accept       json
// @Produce      json
// @Param        body  body      registerManagerRequest  true  "Manager details and member IDs"
// @Success      201   {object}  accountCreatedResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/managers [post]
func (h *ManagerHandler) Register(c echo.Context) error {
	var req registerManagerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	hash, err := req.digest()
	if err != nil {
		return err
	}

	id, err := h.identity.RegisterManagerWithUsers(c.Request().Context(), domain.RegisterManager{
		Caller:         domain.AccountID(req.AccountID),
		Username:       req.Username,
		FullName:       req.FullName,
		CredentialHash: hash,
		Members:        toAccountIDs(req.Members),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, accountCreatedResponse{AccountID: id})
}

// AssignMember handles POST /v1/managers/:id/members.
//
// @Summary      Place a user under a manager
// @Tags         managers
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string               true  "Manager account ID"
// @Param        body  body  assignMemberRequest  true  "Member account ID"
// @Success      204
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/managers/{id}/members [post]
func (h *ManagerHandler) AssignMember(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req assignMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.delegation.AssignMember(c.Request().Context(), domain.AssignMember{
		Caller:  caller,
		Manager: domain.AccountID(c.Param("id")),
		Member:  domain.AccountID(req.Member),
	})
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Members handles GET /v1/managers/:id/members.
//
// @Summary      List a manager's members
// @Tags         managers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Manager account ID"
// @Success      200  {object}  membersResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/managers/{id}/members [get]
func (h *ManagerHandler) Members(c echo.Context) error {
	manager := domain.AccountID(c.Param("id"))
	members, err := h.delegation.MembersOf(manager)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, membersResponse{Manager: manager, Members: members})
}

// IsManaged handles GET /v1/managers/:id/members/:member_id.
//
// @Summary      Check whether a user is managed by a manager
// @Tags         managers
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true  "Manager account ID"
// @Param        member_id  path      string  true  "Member account ID"
// @Success      200        {object}  membershipResponse
// @Router       /v1/managers/{id}/members/{member_id} [get]
func (h *ManagerHandler) IsManaged(c echo.Context) error {
	manager := domain.AccountID(c.Param("id"))
	member := domain.AccountID(c.Param("member_id"))
	return c.JSON(http.StatusOK, membershipResponse{
		Manager: manager,
		Member:  member,
		Managed: h.delegation.IsManagedBy(manager, member),
	})
}

// Panels handles GET /v1/managers/:id/panels.
//
// @Summary      List every panel of a manager's members
// @Tags         managers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Manager account ID"
// @Success      200  {array}   domain.Panel
// @Failure      403  {object}  errorResponse
// @Router       /v1/managers/{id}/panels [get]
func (h *ManagerHandler) Panels(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	panels, err := h.delegation.ManagedPanels(domain.AccountID(c.Param("id")), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, panels)
}

// Trades handles GET /v1/managers/:id/trades.
//
// @Summary      List every trade a manager's members took part in
// @Tags         managers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Manager account ID"
// @Success      200  {array}   domain.Trade
// @Failure      403  {object}  errorResponse
// @Router       /v1/managers/{id}/trades [get]
func (h *ManagerHandler) Trades(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	trades, err := h.delegation.ManagedTrades(domain.AccountID(c.Param("id")), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trades)
}
