package domain

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
)

// AccountID is the caller identity an account was registered under.
type AccountID string

// Role distinguishes regular users from managers.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
)

// CredentialHash is the fixed-size digest stored for an account.
type CredentialHash [32]byte

// HashPassword derives the credential digest the client tooling uses:
// Keccak-256 over the UTF-8 password.
func HashPassword(password string) CredentialHash {
	var h CredentialHash
	d := sha3.NewLegacyKeccak256()
	_, _ = d.Write([]byte(password))
	copy(h[:], d.Sum(nil))
	return h
}

// ParseCredentialHash decodes a 32-byte hex digest, with or without a 0x prefix.
func ParseCredentialHash(s string) (CredentialHash, error) {
	var h CredentialHash
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil || len(raw) != len(h) {
		return h, ErrInvalidCredential
	}
	copy(h[:], raw)
	return h, nil
}

// IsZero reports whether no digest was supplied.
func (h CredentialHash) IsZero() bool {
	return h == CredentialHash{}
}

// Equal compares two digests in constant time.
func (h CredentialHash) Equal(other CredentialHash) bool {
	return subtle.ConstantTimeCompare(h[:], other[:]) == 1
}

func (h CredentialHash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText encodes the digest as 0x-prefixed hex.
func (h CredentialHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex digest.
func (h *CredentialHash) UnmarshalText(text []byte) error {
	parsed, err := ParseCredentialHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Account is a registered ledger identity together with its energy and value
// balances. Values returned by the ledger are copies.
type Account struct {
	ID             AccountID      `json:"id"`
	Username       string         `json:"username"`
	FullName       string         `json:"full_name"`
	CredentialHash CredentialHash `json:"-"`
	Role           Role           `json:"role"`
	Manager        AccountID      `json:"manager,omitempty"`
	RegisteredAt   time.Time      `json:"registered_at"`
	Balances       Balances       `json:"balances"`
}

// IsManager reports whether the account holds the manager role.
func (a *Account) IsManager() bool {
	return a.Role == RoleManager
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Balances = a.Balances.Clone()
	return &c
}

// Balances is the energy and value balance sheet of an account.
//
// Available is the energy that can still be listed. Reserved is held by open
// listings, Sold has left through filled listings. Purchased counts energy
// received from trades; Allocated is the part of it already moved onto panels.
type Balances struct {
	Available int64        `json:"available"`
	Reserved  int64        `json:"reserved"`
	Sold      int64        `json:"sold"`
	Purchased int64        `json:"purchased"`
	Allocated int64        `json:"allocated"`
	Earned    *uint256.Int `json:"earned"`
}

// Unallocated is the purchased energy not yet placed on a panel.
func (b Balances) Unallocated() int64 {
	return b.Purchased - b.Allocated
}

// Clone returns a copy that shares no memory with b.
func (b Balances) Clone() Balances {
	c := b
	if b.Earned != nil {
		c.Earned = b.Earned.Clone()
	} else {
		c.Earned = uint256.NewInt(0)
	}
	return c
}
