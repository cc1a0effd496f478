package domain

import (
	"time"

	"github.com/holiman/uint256"
)

// TradeID identifies a completed purchase.
type TradeID uint64

// Trade records a filled listing: who sold how much energy to whom, and for what.
type Trade struct {
	ID        TradeID      `json:"id"`
	ListingID ListingID    `json:"listing_id"`
	Seller    AccountID    `json:"seller"`
	Buyer     AccountID    `json:"buyer"`
	Quantity  int64        `json:"quantity"`
	UnitPrice *uint256.Int `json:"unit_price"`
	Total     *uint256.Int `json:"total"`
	At        time.Time    `json:"at"`
}

// Involves reports whether the account took part in the trade.
func (t *Trade) Involves(id AccountID) bool {
	return t.Seller == id || t.Buyer == id
}

// Clone returns a deep copy of the trade.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	c := *t
	if t.UnitPrice != nil {
		c.UnitPrice = t.UnitPrice.Clone()
	}
	if t.Total != nil {
		c.Total = t.Total.Clone()
	}
	return &c
}
