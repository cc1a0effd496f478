package domain

import "errors"

// Identity and delegation errors.
var (
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrUnknownAccount    = errors.New("account not found")
	ErrUnknownMember     = errors.New("member account not registered")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidAccount    = errors.New("invalid account details")
	ErrNotAManager       = errors.New("account is not a manager")
	ErrNotAUser          = errors.New("account is not a regular user")
	ErrAlreadyManaged    = errors.New("account already has a manager")
	ErrUnauthorized      = errors.New("caller is not authorized")
)

// Asset registry errors.
var (
	ErrDuplicatePanel   = errors.New("panel already registered for owner")
	ErrPanelNotFound    = errors.New("panel not found")
	ErrInvalidReading   = errors.New("invalid panel reading")
	ErrCapacityExceeded = errors.New("panel capacity exceeded")
)

// Marketplace errors.
var (
	ErrInsufficientBalance = errors.New("insufficient energy balance")
	ErrInvalidListing      = errors.New("invalid listing")
	ErrListingNotFound     = errors.New("listing not found")
	ErrListingNotOpen      = errors.New("listing is not open")
	ErrPaymentMismatch     = errors.New("payment does not match listing total")
	ErrSelfPurchase        = errors.New("seller cannot buy own listing")
)

// ErrDuplicateRequest is returned when an idempotency key is reused.
var ErrDuplicateRequest = errors.New("request already processed")

// ErrJournalInDoubt is returned while the outcome of a failed journal append
// cannot be determined. Mutations are refused until it is.
var ErrJournalInDoubt = errors.New("journal outcome unknown")
