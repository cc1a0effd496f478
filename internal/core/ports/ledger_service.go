package ports

import (
	"context"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// IdentityService covers account registration and credential checks.
type IdentityService interface {
	Register(ctx context.Context, in domain.RegisterAccount) (domain.AccountID, error)
	RegisterManagerWithUsers(ctx context.Context, in domain.RegisterManager) (domain.AccountID, error)
	RotateCredential(ctx context.Context, in domain.RotateCredential) error
	Authenticate(id domain.AccountID, hash domain.CredentialHash) bool
	GetAccount(id domain.AccountID) (*domain.Account, error)
	GetAccountByUsername(username string) (*domain.Account, error)
	GetBalances(id domain.AccountID) (domain.Balances, error)
	GetAvailableBalance(id domain.AccountID) (int64, error)
}

// DelegationService covers the manager → member relation.
type DelegationService interface {
	AssignMember(ctx context.Context, in domain.AssignMember) error
	IsManagedBy(manager, member domain.AccountID) bool
	MembersOf(manager domain.AccountID) ([]domain.AccountID, error)
	ManagedPanels(manager, caller domain.AccountID) ([]domain.Panel, error)
	ManagedTrades(manager, caller domain.AccountID) ([]*domain.Trade, error)
}

// AssetService covers panel registration and energy allocation.
type AssetService interface {
	AddPanelToUser(ctx context.Context, in domain.AddPanel) error
	AllocateEnergy(ctx context.Context, in domain.AllocateEnergy) error
	GetPanelsOf(owner domain.AccountID) ([]domain.Panel, error)
}

// MarketService covers listings and trades.
type MarketService interface {
	PostEnergyForSale(ctx context.Context, in domain.PostListing) (domain.ListingID, error)
	PurchaseEnergy(ctx context.Context, in domain.Purchase) (domain.TradeID, error)
	CancelListing(ctx context.Context, in domain.CancelListing) error
	GetListing(id domain.ListingID) (*domain.Listing, error)
	OpenListings() []*domain.Listing
	ListingsOf(seller domain.AccountID) ([]*domain.Listing, error)
	TradesOf(id domain.AccountID) ([]*domain.Trade, error)
}
