package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lumin-energy/energy-ledger/internal/api/metrics"
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry market mutations safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// MarketCommands is the idempotent write side of the marketplace.
type MarketCommands interface {
	PostEnergyForSale(ctx context.Context, key string, in domain.PostListing) (domain.ListingID, error)
	PurchaseEnergy(ctx context.Context, key string, in domain.Purchase) (domain.TradeID, error)
	CancelListing(ctx context.Context, key string, in domain.CancelListing) error
}

// MarketHandler serves listings and purchases.
type MarketHandler struct {
	queries  ports.MarketService
	commands MarketCommands
}

func NewMarketHandler(queries ports.MarketService, commands MarketCommands) *MarketHandler {
	return &MarketHandler{queries: queries, commands: commands}
}

// Open handles GET /v1/listings.
//
// @Summary      List open listings
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Listing
// @Router       /v1/listings [get]
func (h *MarketHandler) Open(c echo.Context) error {
	return c.JSON(http.StatusOK, h.queries.OpenListings())
}

// Get handles GET /v1/listings/:id.
//
// @Summary      Get a listing
// @Tags         listings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Listing ID"
// @Success      200  {object}  domain.Listing
// @Failure      404  {object}  errorResponse
// @Router       /v1/listings/{id} [get]
func (h *MarketHandler) Get(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	listing, err := h.queries.GetListing(domain.ListingID(id))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listing)
}

// Post handles POST /v1/listings. The caller lists its own energy.
//
// @Summary      Post energy for sale
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Client request key"
// @Param        body             body      postListingRequest  true   "Quantity and wei unit price"
// @Success      201              {object}  listingCreatedResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/listings [post]
func (h *MarketHandler) Post(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	var req postListingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	price, err := parseWei("unit_price", req.UnitPrice)
	if err != nil {
		return err
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	id, err := h.commands.PostEnergyForSale(c.Request().Context(), key, domain.PostListing{
		Caller:    caller,
		Seller:    caller,
		Quantity:  req.Quantity,
		UnitPrice: price,
	})
	record(domain.OpPostListing, key, err)
	if err != nil {
		return err
	}

	self := fmt.Sprintf("/v1/listings/%d", id)
	return c.JSON(http.StatusCreated, listingCreatedResponse{
		ListingID: id,
		Links:     listingLinks{Self: self, Purchase: self + "/purchase"},
	})
}

// Purchase handles POST /v1/listings/:id/purchase. The payment must equal
// quantity × unit price exactly.
//
// @Summary      Buy a listing
// @Tags         listings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string           false  "Client request key"
// @Param        id               path      int              true   "Listing ID"
// @Param        body             body      purchaseRequest  true   "Wei payment"
// @Success      201              {object}  tradeCreatedResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/listings/{id}/purchase [post]
func (h *MarketHandler) Purchase(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req purchaseRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	payment, err := parseWei("payment", req.Payment)
	if err != nil {
		return err
	}

	in := domain.Purchase{Caller: caller, Listing: domain.ListingID(id), Buyer: caller, Payment: payment}
	key := c.Request().Header.Get(HeaderIdempotencyKey)
	tradeID, err := h.commands.PurchaseEnergy(c.Request().Context(), key, in)
	record(domain.OpPurchase, key, err)
	if err != nil {
		return err
	}
	if listing, lerr := h.queries.GetListing(in.Listing); lerr == nil {
		metrics.EnergyTradedTotal.Add(float64(listing.Quantity))
	}
	return c.JSON(http.StatusCreated, tradeCreatedResponse{TradeID: tradeID})
}

// Cancel handles POST /v1/listings/:id/cancel. Only the seller may cancel.
//
// @Summary      Cancel an open listing
// @Tags         listings
// @Security     BearerAuth
// @Param        Idempotency-Key  header  string  false  "Client request key"
// @Param        id               path    int     true   "Listing ID"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/listings/{id}/cancel [post]
func (h *MarketHandler) Cancel(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}

	key := c.Request().Header.Get(HeaderIdempotencyKey)
	err = h.commands.CancelListing(c.Request().Context(), key, domain.CancelListing{
		Caller:  caller,
		Listing: domain.ListingID(id),
	})
	record(domain.OpCancelListing, key, err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
