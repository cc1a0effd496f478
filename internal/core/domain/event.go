package domain

import (
	"strconv"
	"time"
)

// EventType names the state change a ledger event records.
type EventType string

const (
	EventAccountRegistered EventType = "account.registered"
	EventCredentialRotated EventType = "account.credential_rotated"
	EventMemberAssigned    EventType = "delegation.member_assigned"
	EventPanelAdded        EventType = "panel.added"
	EventEnergyAllocated   EventType = "panel.energy_allocated"
	EventListingOpened     EventType = "listing.opened"
	EventListingFilled     EventType = "listing.filled"
	EventListingCancelled  EventType = "listing.cancelled"
)

// Event is the change record emitted for every committed mutation. Only the
// identifiers relevant to the event type are set.
type Event struct {
	ID      string    `json:"id"`
	Seq     uint64    `json:"seq"`
	Type    EventType `json:"type"`
	Caller  AccountID `json:"caller"`
	Account AccountID `json:"account,omitempty"`
	Member  AccountID `json:"member,omitempty"`
	Panel   uint64    `json:"panel,omitempty"`
	Listing ListingID `json:"listing,omitempty"`
	Trade   TradeID   `json:"trade,omitempty"`
	Amount  int64     `json:"amount,omitempty"`
	At      time.Time `json:"at"`
}

// Key returns the entity the event is ordered by: the listing for market
// events, the account otherwise.
func (e Event) Key() string {
	if e.Listing != 0 {
		return "listing:" + strconv.FormatUint(uint64(e.Listing), 10)
	}
	return "account:" + string(e.Account)
}
