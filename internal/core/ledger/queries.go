package ledger

import (
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// Queries take the read lock and return copies; callers never hold references
// into ledger state.

// Authenticate reports whether hash matches the account's credential digest.
func (l *Ledger) Authenticate(id domain.AccountID, hash domain.CredentialHash) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.authenticate(id, hash)
}

func (l *Ledger) GetAccount(id domain.AccountID) (*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.state.account(id)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	return acc.Clone(), nil
}

func (l *Ledger) GetAccountByUsername(username string) (*domain.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	id, ok := l.state.usernames[username]
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	return l.state.accounts[id].Clone(), nil
}

func (l *Ledger) GetBalances(id domain.AccountID) (domain.Balances, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.state.account(id)
	if !ok {
		return domain.Balances{}, domain.ErrUnknownAccount
	}
	return acc.Balances.Clone(), nil
}

// GetAvailableBalance returns the energy the account can still list for sale.
func (l *Ledger) GetAvailableBalance(id domain.AccountID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	acc, ok := l.state.account(id)
	if !ok {
		return 0, domain.ErrUnknownAccount
	}
	return acc.Balances.Available, nil
}

func (l *Ledger) IsManagedBy(manager, member domain.AccountID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.isManagedBy(manager, member)
}

func (l *Ledger) MembersOf(manager domain.AccountID) ([]domain.AccountID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.membersOf(manager)
}

func (l *Ledger) ManagedPanels(manager, caller domain.AccountID) ([]domain.Panel, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.managedPanels(manager, caller)
}

func (l *Ledger) ManagedTrades(manager, caller domain.AccountID) ([]*domain.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.managedTrades(manager, caller)
}

func (l *Ledger) GetPanelsOf(owner domain.AccountID) ([]domain.Panel, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.panelsOf(owner)
}

func (l *Ledger) GetListing(id domain.ListingID) (*domain.Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	listing, ok := l.state.listing(id)
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return listing.Clone(), nil
}

// OpenListings returns every open listing in creation order.
func (l *Ledger) OpenListings() []*domain.Listing {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.openListings()
}

func (l *Ledger) ListingsOf(seller domain.AccountID) ([]*domain.Listing, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.listingsOf(seller)
}

func (l *Ledger) TradesOf(id domain.AccountID) ([]*domain.Trade, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.tradesOf(id)
}

// Seq returns the sequence number of the last committed operation.
func (l *Ledger) Seq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.seq
}
