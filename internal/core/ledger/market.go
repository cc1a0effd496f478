package ledger

import (
	"time"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// planPostListing reserves the listed quantity out of the seller's available
// energy at once, so the same energy cannot be listed twice.
func (s *State) planPostListing(in domain.PostListing, at time.Time) (*plan, error) {
	seller, ok := s.account(in.Seller)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	if err := authorize(s, in.Caller, in.Seller, needSelf); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 || in.UnitPrice == nil {
		return nil, domain.ErrInvalidListing
	}
	if _, ok := domain.TotalPrice(in.Quantity, in.UnitPrice); !ok {
		return nil, domain.ErrInvalidListing
	}
	if in.Quantity > seller.Balances.Available {
		return nil, domain.ErrInsufficientBalance
	}

	l := &domain.Listing{
		ID:        domain.ListingID(len(s.listings) + 1),
		Seller:    in.Seller,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice.Clone(),
		Status:    domain.ListingOpen,
		CreatedAt: at,
	}

	return &plan{
		apply: func() {
			s.listings = append(s.listings, l)
			seller.Balances.Reserved += l.Quantity
			s.recount(seller)
		},
		events: []domain.Event{
			{Type: domain.EventListingOpened, Caller: in.Caller, Account: in.Seller, Listing: l.ID, Amount: l.Quantity},
		},
		listing: l.ID,
	}, nil
}

// planPurchase fills a listing in full. Status, seller and buyer balances and
// the trade record change together.
func (s *State) planPurchase(in domain.Purchase, at time.Time) (*plan, error) {
	l, ok := s.listing(in.Listing)
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	buyer, ok := s.account(in.Buyer)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	if err := authorize(s, in.Caller, in.Buyer, needSelf); err != nil {
		return nil, err
	}
	if !l.Status.CanTransitionTo(domain.ListingFilled) {
		return nil, domain.ErrListingNotOpen
	}
	if l.Seller == in.Buyer {
		return nil, domain.ErrSelfPurchase
	}
	total, ok := l.Total()
	if !ok || in.Payment == nil || !in.Payment.Eq(total) {
		return nil, domain.ErrPaymentMismatch
	}
	seller, ok := s.account(l.Seller)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}

	t := &domain.Trade{
		ID:        domain.TradeID(len(s.trades) + 1),
		ListingID: l.ID,
		Seller:    l.Seller,
		Buyer:     in.Buyer,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice.Clone(),
		Total:     total,
		At:        at,
	}

	return &plan{
		apply: func() {
			closed := at
			l.Status = domain.ListingFilled
			l.Buyer = buyer.ID
			l.ClosedAt = &closed

			seller.Balances.Reserved -= l.Quantity
			seller.Balances.Sold += l.Quantity
			seller.Balances.Earned.Add(seller.Balances.Earned, total)
			s.recount(seller)

			buyer.Balances.Purchased += l.Quantity
			s.trades = append(s.trades, t)
		},
		events: []domain.Event{
			{Type: domain.EventListingFilled, Caller: in.Caller, Account: l.Seller, Member: in.Buyer, Listing: l.ID, Trade: t.ID, Amount: l.Quantity},
		},
		trade: t.ID,
	}, nil
}

// planCancelListing withdraws an open listing and returns its reservation.
func (s *State) planCancelListing(in domain.CancelListing, at time.Time) (*plan, error) {
	l, ok := s.listing(in.Listing)
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	if in.Caller != l.Seller {
		return nil, domain.ErrUnauthorized
	}
	if !l.Status.CanTransitionTo(domain.ListingCancelled) {
		return nil, domain.ErrListingNotOpen
	}
	seller, ok := s.account(l.Seller)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}

	return &plan{
		apply: func() {
			closed := at
			l.Status = domain.ListingCancelled
			l.ClosedAt = &closed
			seller.Balances.Reserved -= l.Quantity
			s.recount(seller)
		},
		events: []domain.Event{
			{Type: domain.EventListingCancelled, Caller: in.Caller, Account: l.Seller, Listing: l.ID, Amount: l.Quantity},
		},
	}, nil
}

func (s *State) openListings() []*domain.Listing {
	out := []*domain.Listing{}
	for _, l := range s.listings {
		if l.Status == domain.ListingOpen {
			out = append(out, l.Clone())
		}
	}
	return out
}

func (s *State) listingsOf(seller domain.AccountID) ([]*domain.Listing, error) {
	if _, ok := s.account(seller); !ok {
		return nil, domain.ErrUnknownAccount
	}
	out := []*domain.Listing{}
	for _, l := range s.listings {
		if l.Seller == seller {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

func (s *State) tradesOf(id domain.AccountID) ([]*domain.Trade, error) {
	if _, ok := s.account(id); !ok {
		return nil, domain.ErrUnknownAccount
	}
	out := []*domain.Trade{}
	for _, t := range s.trades {
		if t.Involves(id) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}
