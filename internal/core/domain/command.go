package domain

import (
	"encoding/json"
	"time"

	"github.com/holiman/uint256"
)

// Op names a mutating ledger operation as recorded in the journal.
type Op string

const (
	OpRegister         Op = "register"
	OpRegisterManager  Op = "register_manager"
	OpRotateCredential Op = "rotate_credential"
	OpAssignMember     Op = "assign_member"
	OpAddPanel         Op = "add_panel"
	OpAllocateEnergy   Op = "allocate_energy"
	OpPostListing      Op = "post_listing"
	OpPurchase         Op = "purchase"
	OpCancelListing    Op = "cancel_listing"
)

// RegisterAccount registers Caller as a new account.
type RegisterAccount struct {
	Caller         AccountID      `json:"caller"`
	Username       string         `json:"username"`
	FullName       string         `json:"full_name"`
	CredentialHash CredentialHash `json:"credential_hash"`
	IsManager      bool           `json:"is_manager"`
}

// RegisterManager registers Caller as a manager administering Members.
type RegisterManager struct {
	Caller         AccountID      `json:"caller"`
	Username       string         `json:"username"`
	FullName       string         `json:"full_name"`
	CredentialHash CredentialHash `json:"credential_hash"`
	Members        []AccountID    `json:"members"`
}

// RotateCredential replaces the credential digest of Account.
type RotateCredential struct {
	Caller  AccountID      `json:"caller"`
	Account AccountID      `json:"account"`
	Current CredentialHash `json:"current"`
	Next    CredentialHash `json:"next"`
}

// AssignMember adds Member to the set administered by Manager.
type AssignMember struct {
	Caller  AccountID `json:"caller"`
	Manager AccountID `json:"manager"`
	Member  AccountID `json:"member"`
}

// AddPanel registers a solar panel under Owner.
type AddPanel struct {
	Caller     AccountID `json:"caller"`
	Owner      AccountID `json:"owner"`
	PanelID    uint64    `json:"panel_id"`
	Capacity   int64     `json:"capacity"`
	Location   string    `json:"location"`
	Produced   int64     `json:"produced"`
	Consumed   int64     `json:"consumed"`
	Efficiency int       `json:"efficiency"`
}

// AllocateEnergy moves purchased energy of Owner onto one of its panels.
type AllocateEnergy struct {
	Caller   AccountID `json:"caller"`
	Owner    AccountID `json:"owner"`
	PanelID  uint64    `json:"panel_id"`
	Quantity int64     `json:"quantity"`
}

// PostListing offers Quantity kWh of Seller's available energy at UnitPrice wei each.
type PostListing struct {
	Caller    AccountID    `json:"caller"`
	Seller    AccountID    `json:"seller"`
	Quantity  int64        `json:"quantity"`
	UnitPrice *uint256.Int `json:"unit_price"`
}

// Purchase fills a listing for Buyer; Payment must equal the listing total.
type Purchase struct {
	Caller  AccountID    `json:"caller"`
	Listing ListingID    `json:"listing"`
	Buyer   AccountID    `json:"buyer"`
	Payment *uint256.Int `json:"payment"`
}

// CancelListing withdraws an open listing.
type CancelListing struct {
	Caller  AccountID `json:"caller"`
	Listing ListingID `json:"listing"`
}

// JournalEntry is a committed operation in sequence order. Args holds the JSON
// encoding of the operation's command struct.
type JournalEntry struct {
	Seq    uint64          `json:"seq"`
	Op     Op              `json:"op"`
	Caller AccountID       `json:"caller"`
	At     time.Time       `json:"at"`
	Args   json.RawMessage `json:"args"`
}
