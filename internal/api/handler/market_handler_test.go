package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/api/middleware"
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ledger"
)

type stubCommands struct {
	keys    []string
	post    domain.PostListing
	buy     domain.Purchase
	postErr error
}

func (s *stubCommands) PostEnergyForSale(_ context.Context, key string, in domain.PostListing) (domain.ListingID, error) {
	s.keys = append(s.keys, key)
	s.post = in
	if s.postErr != nil {
		return 0, s.postErr
	}
	return 7, nil
}

func (s *stubCommands) PurchaseEnergy(_ context.Context, key string, in domain.Purchase) (domain.TradeID, error) {
	s.keys = append(s.keys, key)
	s.buy = in
	return 3, nil
}

func (s *stubCommands) CancelListing(_ context.Context, key string, _ domain.CancelListing) error {
	s.keys = append(s.keys, key)
	return nil
}

func asCaller(c echo.Context, id domain.AccountID) echo.Context {
	c.Set(middleware.CtxAccountID, id)
	return c
}

func TestMarketHandler_Post_PassesCallerPriceAndKey(t *testing.T) {
	e := newTestEcho()
	cmds := &stubCommands{}
	h := NewMarketHandler(ledger.New(zerolog.Nop()), cmds)

	req := jsonRequest(http.MethodPost, "/v1/listings", `{"quantity":40,"unit_price":"100000000000000000"}`)
	req.Header.Set(HeaderIdempotencyKey, "abc")
	rec := httptest.NewRecorder()

	if err := h.Post(asCaller(e.NewContext(req, rec), "0xa11ce")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if cmds.post.Caller != "0xa11ce" || cmds.post.Seller != "0xa11ce" || cmds.post.Quantity != 40 {
		t.Fatalf("unexpected command: %+v", cmds.post)
	}
	if cmds.post.UnitPrice.Dec() != "100000000000000000" {
		t.Fatalf("unexpected price: %s", cmds.post.UnitPrice.Dec())
	}
	if len(cmds.keys) != 1 || cmds.keys[0] != "abc" {
		t.Fatalf("expected idempotency key to be forwarded, got %v", cmds.keys)
	}

	var resp listingCreatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ListingID != 7 || resp.Links.Self != "/v1/listings/7" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestMarketHandler_Post_WeiOverflowRejected(t *testing.T) {
	e := newTestEcho()
	cmds := &stubCommands{}
	h := NewMarketHandler(ledger.New(zerolog.Nop()), cmds)

	// 2^256
	huge := "115792089237316195423570985008687907853269984665640564039457584007913129639936"
	req := jsonRequest(http.MethodPost, "/v1/listings", `{"quantity":1,"unit_price":"`+huge+`"}`)
	err := h.Post(asCaller(e.NewContext(req, httptest.NewRecorder()), "0xa11ce"))
	if code := httpCode(t, err); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if len(cmds.keys) != 0 {
		t.Fatalf("command must not run on a bad price")
	}
}

func TestMarketHandler_Post_PropagatesDomainError(t *testing.T) {
	e := newTestEcho()
	cmds := &stubCommands{postErr: domain.ErrDuplicateRequest}
	h := NewMarketHandler(ledger.New(zerolog.Nop()), cmds)

	req := jsonRequest(http.MethodPost, "/v1/listings", `{"quantity":1,"unit_price":"1"}`)
	err := h.Post(asCaller(e.NewContext(req, httptest.NewRecorder()), "0xa11ce"))
	if !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
}

func TestMarketHandler_Purchase_BuyerIsCaller(t *testing.T) {
	e := newTestEcho()
	cmds := &stubCommands{}
	h := NewMarketHandler(ledger.New(zerolog.Nop()), cmds)

	req := jsonRequest(http.MethodPost, "/v1/listings/5/purchase", `{"payment":"900"}`)
	rec := httptest.NewRecorder()
	c := asCaller(e.NewContext(req, rec), "0xb0b")
	c.SetParamNames("id")
	c.SetParamValues("5")

	if err := h.Purchase(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if cmds.buy.Buyer != "0xb0b" || cmds.buy.Caller != "0xb0b" || cmds.buy.Listing != 5 || cmds.buy.Payment.Uint64() != 900 {
		t.Fatalf("unexpected command: %+v", cmds.buy)
	}
}

func TestMarketHandler_RequiresCaller(t *testing.T) {
	e := newTestEcho()
	h := NewMarketHandler(ledger.New(zerolog.Nop()), &stubCommands{})

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/listings/1/cancel", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")
	if code := httpCode(t, h.Cancel(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}
