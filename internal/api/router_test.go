package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/api/handler"
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ledger"
	"github.com/lumin-energy/energy-ledger/internal/core/service"
)

const testSecret = "router-secret"

type memoryKeys struct {
	seen map[string]bool
}

func (k *memoryKeys) Claim(_ context.Context, account domain.AccountID, key string) (bool, error) {
	id := string(account) + ":" + key
	if k.seen[id] {
		return false, nil
	}
	k.seen[id] = true
	return true, nil
}

func (k *memoryKeys) Release(_ context.Context, account domain.AccountID, key string) error {
	delete(k.seen, string(account)+":"+key)
	return nil
}

func newTestServer(t *testing.T) (*echo.Echo, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(zerolog.Nop())
	e := NewRouter(Deps{
		Ledger:     l,
		Market:     service.NewMarketService(l, &memoryKeys{seen: map[string]bool{}}, zerolog.Nop()),
		Auth:       service.NewAuthService(l, testSecret, time.Hour),
		JWTSecret:  testSecret,
		Log:        zerolog.Nop(),
		Registerer: prometheus.NewRegistry(),
	})
	return e, l
}

func call(e *echo.Echo, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func mustStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func login(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := call(e, http.MethodPost, "/v1/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	mustStatus(t, rec, http.StatusOK)
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token")
	}
	return token
}

// seed registers Rawan and Sara as users, Carol as Rawan's manager, and gives
// Rawan a panel with 200 units of surplus.
func seed(t *testing.T, e *echo.Echo) (rawan, sara, carol string) {
	t.Helper()
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts", "",
		`{"account_id":"0xa11ce","username":"rawan","full_name":"Rawan A","password":"pw-rawan"}`), http.StatusCreated)
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts", "",
		`{"account_id":"0xb0b","username":"sara","full_name":"Sara B","password":"pw-sara"}`), http.StatusCreated)
	mustStatus(t, call(e, http.MethodPost, "/v1/managers", "",
		`{"account_id":"0xca401","username":"carol","full_name":"Carol C","password":"pw-carol","members":["0xa11ce"]}`), http.StatusCreated)

	rawan = login(t, e, "rawan", "pw-rawan")
	sara = login(t, e, "sara", "pw-sara")
	carol = login(t, e, "carol", "pw-carol")

	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels", rawan,
		`{"panel_id":1,"capacity":500,"location":"Location A","produced":300,"consumed":100,"efficiency":95}`), http.StatusCreated)
	return rawan, sara, carol
}

func TestRouter_TradeFlow(t *testing.T) {
	e, l := newTestServer(t)
	rawan, sara, _ := seed(t, e)

	bal := decode(t, call(e, http.MethodGet, "/v1/accounts/0xa11ce/balance", rawan, ""))
	if bal["available"] != float64(200) {
		t.Fatalf("expected 200 available, got %v", bal["available"])
	}

	rec := call(e, http.MethodPost, "/v1/listings", rawan, `{"quantity":200,"unit_price":"10"}`)
	mustStatus(t, rec, http.StatusCreated)
	created := decode(t, rec)
	if created["listing_id"] != float64(1) {
		t.Fatalf("expected listing 1, got %v", created["listing_id"])
	}
	links, _ := created["_links"].(map[string]any)
	if links["purchase"] != "/v1/listings/1/purchase" {
		t.Fatalf("unexpected links: %v", links)
	}

	rec = call(e, http.MethodPost, "/v1/listings/1/purchase", sara, `{"payment":"2000"}`)
	mustStatus(t, rec, http.StatusCreated)
	if decode(t, rec)["trade_id"] != float64(1) {
		t.Fatalf("expected trade 1, got %s", rec.Body.String())
	}

	listing := decode(t, call(e, http.MethodGet, "/v1/listings/1", sara, ""))
	if listing["status"] != string(domain.ListingFilled) || listing["buyer"] != "0xb0b" {
		t.Fatalf("unexpected listing: %v", listing)
	}

	seller := decode(t, call(e, http.MethodGet, "/v1/accounts/0xa11ce/balance", rawan, ""))
	if seller["earned"] != "2000" || seller["sold"] != float64(200) {
		t.Fatalf("unexpected seller balances: %v", seller)
	}
	buyer := decode(t, call(e, http.MethodGet, "/v1/accounts/0xb0b/balance", sara, ""))
	if buyer["purchased"] != float64(200) {
		t.Fatalf("unexpected buyer balances: %v", buyer)
	}

	rec = call(e, http.MethodGet, "/v1/accounts/0xb0b/trades", sara, "")
	mustStatus(t, rec, http.StatusOK)
	var trades []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &trades); err != nil || len(trades) != 1 {
		t.Fatalf("expected one trade, got %s", rec.Body.String())
	}

	rec = call(e, http.MethodGet, "/v1/listings", sara, "")
	mustStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected no open listings, got %s", rec.Body.String())
	}

	rec = call(e, http.MethodGet, "/v1/accounts/0xa11ce/listings", rawan, "")
	mustStatus(t, rec, http.StatusOK)
	var posted []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &posted); err != nil || len(posted) != 1 || posted[0]["unit_price"] != "10" {
		t.Fatalf("expected the filled listing, got %s", rec.Body.String())
	}

	health := decode(t, call(e, http.MethodGet, "/health", "", ""))
	if health["seq"] != float64(l.Seq()) {
		t.Fatalf("expected seq %d in health, got %v", l.Seq(), health["seq"])
	}
}

func TestRouter_ErrorStatusMapping(t *testing.T) {
	e, _ := newTestServer(t)
	rawan, sara, _ := seed(t, e)
	mustStatus(t, call(e, http.MethodPost, "/v1/listings", rawan, `{"quantity":100,"unit_price":"3"}`), http.StatusCreated)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"no token", http.MethodGet, "/v1/listings", "", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/v1/listings", "nope", "", http.StatusUnauthorized},
		{"bad login", http.MethodPost, "/v1/auth/login", "", `{"username":"rawan","password":"wrong"}`, http.StatusUnauthorized},
		{"duplicate account", http.MethodPost, "/v1/accounts", "", `{"account_id":"0xa11ce","username":"x","full_name":"X","password":"p"}`, http.StatusConflict},
		{"missing credential", http.MethodPost, "/v1/accounts", "", `{"account_id":"0xf00","username":"f","full_name":"F"}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/v1/listings", rawan, `{"quantity":`, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/v1/listings", rawan, `{"quantity":0,"unit_price":"1"}`, http.StatusUnprocessableEntity},
		{"non numeric price", http.MethodPost, "/v1/listings", rawan, `{"quantity":1,"unit_price":"ten"}`, http.StatusUnprocessableEntity},
		{"over balance", http.MethodPost, "/v1/listings", rawan, `{"quantity":101,"unit_price":"1"}`, http.StatusUnprocessableEntity},
		{"unknown listing", http.MethodGet, "/v1/listings/99", sara, "", http.StatusNotFound},
		{"bad listing id", http.MethodGet, "/v1/listings/abc", sara, "", http.StatusBadRequest},
		{"payment mismatch", http.MethodPost, "/v1/listings/1/purchase", sara, `{"payment":"299"}`, http.StatusUnprocessableEntity},
		{"self purchase", http.MethodPost, "/v1/listings/1/purchase", rawan, `{"payment":"300"}`, http.StatusUnprocessableEntity},
		{"cancel by stranger", http.MethodPost, "/v1/listings/1/cancel", sara, "", http.StatusForbidden},
		{"panel for someone else", http.MethodPost, "/v1/accounts/0xa11ce/panels", sara, `{"panel_id":9,"capacity":10}`, http.StatusForbidden},
		{"duplicate panel", http.MethodPost, "/v1/accounts/0xa11ce/panels", rawan, `{"panel_id":1,"capacity":10}`, http.StatusConflict},
		{"efficiency out of range", http.MethodPost, "/v1/accounts/0xa11ce/panels", rawan, `{"panel_id":2,"capacity":10,"efficiency":101}`, http.StatusUnprocessableEntity},
		{"unknown account", http.MethodGet, "/v1/accounts/0xdead", sara, "", http.StatusNotFound},
		{"allocate without purchase", http.MethodPost, "/v1/accounts/0xa11ce/panels/1/allocations", rawan, `{"quantity":5}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := call(e, tc.method, tc.path, tc.token, tc.body)
			mustStatus(t, rec, tc.want)
			if msg, _ := decode(t, rec)["error"].(string); msg == "" {
				t.Fatalf("expected error envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestRouter_ManagerRoutes(t *testing.T) {
	e, _ := newTestServer(t)
	rawan, sara, carol := seed(t, e)

	mustStatus(t, call(e, http.MethodPost, "/v1/managers/0xca401/members", sara, `{"member":"0xb0b"}`), http.StatusForbidden)
	mustStatus(t, call(e, http.MethodPost, "/v1/managers/0xca401/members", carol, `{"member":"0xb0b"}`), http.StatusNoContent)
	mustStatus(t, call(e, http.MethodPost, "/v1/managers/0xca401/members", carol, `{"member":"0xb0b"}`), http.StatusConflict)

	members := decode(t, call(e, http.MethodGet, "/v1/managers/0xca401/members", rawan, ""))
	if got, _ := members["members"].([]any); len(got) != 2 {
		t.Fatalf("expected two members, got %v", members)
	}

	managed := decode(t, call(e, http.MethodGet, "/v1/managers/0xca401/members/0xb0b", sara, ""))
	if managed["managed"] != true {
		t.Fatalf("expected sara to be managed, got %v", managed)
	}

	// Carol acts on behalf of a member.
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xb0b/panels", carol, `{"panel_id":7,"capacity":50}`), http.StatusCreated)

	rec := call(e, http.MethodGet, "/v1/managers/0xca401/panels", carol, "")
	mustStatus(t, rec, http.StatusOK)
	var panels []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &panels); err != nil || len(panels) != 2 {
		t.Fatalf("expected two managed panels, got %s", rec.Body.String())
	}

	mustStatus(t, call(e, http.MethodGet, "/v1/managers/0xca401/panels", sara, ""), http.StatusForbidden)
	mustStatus(t, call(e, http.MethodGet, "/v1/managers/0xca401/trades", carol, ""), http.StatusOK)

	mustStatus(t, call(e, http.MethodPost, "/v1/managers", "",
		`{"account_id":"0xd00d","username":"dora","full_name":"Dora D","password":"pw","members":["0xbeef"]}`), http.StatusNotFound)
}

func TestRouter_CredentialRotation(t *testing.T) {
	e, _ := newTestServer(t)
	rawan, sara, _ := seed(t, e)

	mustStatus(t, call(e, http.MethodPut, "/v1/accounts/0xa11ce/credential", sara,
		`{"current_password":"pw-rawan","new_password":"next"}`), http.StatusForbidden)
	mustStatus(t, call(e, http.MethodPut, "/v1/accounts/0xa11ce/credential", rawan,
		`{"current_password":"wrong","new_password":"next"}`), http.StatusUnauthorized)
	mustStatus(t, call(e, http.MethodPut, "/v1/accounts/0xa11ce/credential", rawan,
		`{"current_password":"pw-rawan","new_password":"next"}`), http.StatusNoContent)

	mustStatus(t, call(e, http.MethodPost, "/v1/auth/login", "", `{"username":"rawan","password":"pw-rawan"}`), http.StatusUnauthorized)
	login(t, e, "rawan", "next")
}

func TestRouter_IdempotencyKey(t *testing.T) {
	e, l := newTestServer(t)
	rawan, sara, _ := seed(t, e)
	key := handler.HeaderIdempotencyKey

	mustStatus(t, call(e, http.MethodPost, "/v1/listings", rawan, `{"quantity":50,"unit_price":"2"}`, key, "post-1"), http.StatusCreated)
	mustStatus(t, call(e, http.MethodPost, "/v1/listings", rawan, `{"quantity":50,"unit_price":"2"}`, key, "post-1"), http.StatusConflict)
	if n := len(l.OpenListings()); n != 1 {
		t.Fatalf("expected one open listing, got %d", n)
	}

	// A rejected purchase frees the key for a corrected retry.
	mustStatus(t, call(e, http.MethodPost, "/v1/listings/1/purchase", sara, `{"payment":"1"}`, key, "buy-1"), http.StatusUnprocessableEntity)
	mustStatus(t, call(e, http.MethodPost, "/v1/listings/1/purchase", sara, `{"payment":"100"}`, key, "buy-1"), http.StatusCreated)
	mustStatus(t, call(e, http.MethodPost, "/v1/listings/1/purchase", sara, `{"payment":"100"}`, key, "buy-1"), http.StatusConflict)
}

func TestRouter_Probes(t *testing.T) {
	e, _ := newTestServer(t)

	mustStatus(t, call(e, http.MethodGet, "/health/ready", "", ""), http.StatusOK)
	mustStatus(t, call(e, http.MethodGet, "/metrics", "", ""), http.StatusOK)
	mustStatus(t, call(e, http.MethodGet, "/v1/nowhere", "", ""), http.StatusNotFound)
}

func TestRouter_PanelIDZeroAccepted(t *testing.T) {
	e, l := newTestServer(t)
	rawan, _, _ := seed(t, e)

	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels", rawan, `{"panel_id":0,"capacity":40,"produced":10}`), http.StatusCreated)
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels", rawan, `{"capacity":40}`), http.StatusUnprocessableEntity)

	panels, err := l.GetPanelsOf("0xa11ce")
	if err != nil || len(panels) != 2 {
		t.Fatalf("expected two panels, got %v (%v)", panels, err)
	}

	// Panel 0 is addressable for allocations too; Rawan has nothing purchased to move.
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels/0/allocations", rawan, `{"quantity":1}`), http.StatusUnprocessableEntity)
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels/7/allocations", rawan, `{"quantity":1}`), http.StatusNotFound)
	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels/x/allocations", rawan, `{"quantity":1}`), http.StatusBadRequest)
}

func TestRouter_NetOverflowRejected(t *testing.T) {
	e, _ := newTestServer(t)
	rawan, _, _ := seed(t, e)

	mustStatus(t, call(e, http.MethodPost, "/v1/accounts/0xa11ce/panels", rawan,
		`{"panel_id":2,"capacity":10,"produced":9223372036854775807}`), http.StatusUnprocessableEntity)
	bal := decode(t, call(e, http.MethodGet, "/v1/accounts/0xa11ce/balance", rawan, ""))
	if bal["available"] != float64(200) {
		t.Fatalf("balance changed: %v", bal["available"])
	}
}
