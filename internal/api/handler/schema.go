package handler

import (
	"net/http"

	"github.com/holiman/uint256"
	"github.com/labstack/echo/v4"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

// credentialRequest accepts either a plaintext password, hashed server side,
// or a precomputed 0x-prefixed Keccak-256 digest.
type credentialRequest struct {
	Password       string `json:"password"        validate:"required_without=CredentialHash"`
	CredentialHash string `json:"credential_hash" validate:"required_without=Password"`
}

func (r credentialRequest) digest() (domain.CredentialHash, error) {
	if r.CredentialHash != "" {
		h, err := domain.ParseCredentialHash(r.CredentialHash)
		if err != nil {
			return h, echo.NewHTTPError(http.StatusBadRequest, "credential_hash must be a 32-byte hex digest")
		}
		return h, nil
	}
	return domain.HashPassword(r.Password), nil
}

type registerAccountRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Username  string `json:"username"   validate:"required"`
	FullName  string `json:"full_name"  validate:"required"`
	IsManager bool   `json:"is_manager"`
	credentialRequest
}

type registerManagerRequest struct {
	AccountID string   `json:"account_id" validate:"required"`
	Username  string   `json:"username"   validate:"required"`
	FullName  string   `json:"full_name"  validate:"required"`
	Members   []string `json:"members"    validate:"dive,required"`
	credentialRequest
}

type rotateCredentialRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=1"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type assignMemberRequest struct {
	Member string `json:"member" validate:"required"`
}

type addPanelRequest struct {
	PanelID    *uint64 `json:"panel_id"   validate:"required"`
	Capacity   int64   `json:"capacity"   validate:"required,gt=0"`
	Location   string  `json:"location"`
	Produced   int64   `json:"produced"   validate:"gte=0"`
	Consumed   int64   `json:"consumed"   validate:"gte=0"`
	Efficiency int     `json:"efficiency" validate:"gte=0,lte=100"`
}

type allocateEnergyRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}

// Wei amounts travel as decimal strings.
type postListingRequest struct {
	Quantity  int64  `json:"quantity"   validate:"required,gt=0"`
	UnitPrice string `json:"unit_price" validate:"required,numeric"`
}

type purchaseRequest struct {
	Payment string `json:"payment" validate:"required,numeric"`
}

// --- Response types ---

type accountCreatedResponse struct {
	AccountID domain.AccountID `json:"account_id"`
}

type authResponse struct {
	Token   string          `json:"token"`
	Account *domain.Account `json:"account"`
}

type membersResponse struct {
	Manager domain.AccountID   `json:"manager"`
	Members []domain.AccountID `json:"members"`
}

type membershipResponse struct {
	Manager domain.AccountID `json:"manager"`
	Member  domain.AccountID `json:"member"`
	Managed bool             `json:"managed"`
}

type listingCreatedResponse struct {
	ListingID domain.ListingID `json:"listing_id"`
	Links     listingLinks     `json:"_links"`
}

type tradeCreatedResponse struct {
	TradeID domain.TradeID `json:"trade_id"`
}

type listingLinks struct {
	Self     string `json:"self"`
	Purchase string `json:"purchase"`
}

// parseWei decodes a decimal wei amount.
func parseWei(field, s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, field+" must be a decimal wei amount")
	}
	return v, nil
}

func toAccountIDs(ids []string) []domain.AccountID {
	out := make([]domain.AccountID, len(ids))
	for i, id := range ids {
		out[i] = domain.AccountID(id)
	}
	return out
}
