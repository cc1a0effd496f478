package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// ListingID identifies a listing; IDs are assigned in creation order.
type ListingID uint64

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	ListingOpen      ListingStatus = "open"
	ListingFilled    ListingStatus = "filled"
	ListingCancelled ListingStatus = "cancelled"
)

// validListingTransitions defines the allowed state machine transitions.
// Filled and cancelled listings are terminal.
var validListingTransitions = map[ListingStatus][]ListingStatus{
	ListingOpen: {ListingFilled, ListingCancelled},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	for _, allowed := range validListingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Listing is an offer to sell a fixed quantity of energy at a fixed unit price
// denominated in wei.
type Listing struct {
	ID        ListingID     `json:"id"`
	Seller    AccountID     `json:"seller"`
	Quantity  int64         `json:"quantity"`
	UnitPrice *uint256.Int  `json:"unit_price"`
	Status    ListingStatus `json:"status"`
	Buyer     AccountID     `json:"buyer,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ClosedAt  *time.Time    `json:"closed_at,omitempty"`
}

// Total returns quantity × unit price. The second result is false when the
// product does not fit in 256 bits.
func (l *Listing) Total() (*uint256.Int, bool) {
	return TotalPrice(l.Quantity, l.UnitPrice)
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	if l.UnitPrice != nil {
		c.UnitPrice = l.UnitPrice.Clone()
	}
	if l.ClosedAt != nil {
		t := *l.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// TotalPrice multiplies an energy quantity by a wei unit price.
func TotalPrice(quantity int64, unitPrice *uint256.Int) (*uint256.Int, bool) {
	if quantity < 0 || unitPrice == nil {
		return nil, false
	}
	total, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(uint64(quantity)), unitPrice)
	if overflow {
		return nil, false
	}
	return total, true
}
