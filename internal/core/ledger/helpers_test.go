package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

const (
	alice domain.AccountID = "0xa11ce"
	bob   domain.AccountID = "0xb0b"
	carol domain.AccountID = "0xca401"
	dave  domain.AccountID = "0xda7e"
	eve   domain.AccountID = "0xe7e"
)

var ctx = context.Background()

type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingEmitter) Emit(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock())}, opts...)
	return New(zerolog.Nop(), opts...)
}

func register(t *testing.T, l *Ledger, id domain.AccountID, username string) {
	t.Helper()
	_, err := l.Register(ctx, domain.RegisterAccount{
		Caller:         id,
		Username:       username,
		FullName:       username + " Example",
		CredentialHash: domain.HashPassword(username),
	})
	require.NoError(t, err)
}

func registerManager(t *testing.T, l *Ledger, id domain.AccountID, username string, members ...domain.AccountID) {
	t.Helper()
	_, err := l.RegisterManagerWithUsers(ctx, domain.RegisterManager{
		Caller:         id,
		Username:       username,
		FullName:       username + " Manager",
		CredentialHash: domain.HashPassword(username),
		Members:        members,
	})
	require.NoError(t, err)
}

func addPanel(t *testing.T, l *Ledger, owner domain.AccountID, id uint64, produced, consumed int64) {
	t.Helper()
	require.NoError(t, l.AddPanelToUser(ctx, domain.AddPanel{
		Caller:     owner,
		Owner:      owner,
		PanelID:    id,
		Capacity:   1000,
		Location:   "Location",
		Produced:   produced,
		Consumed:   consumed,
		Efficiency: 90,
	}))
}

func post(t *testing.T, l *Ledger, seller domain.AccountID, qty int64, price uint64) domain.ListingID {
	t.Helper()
	id, err := l.PostEnergyForSale(ctx, domain.PostListing{
		Caller:    seller,
		Seller:    seller,
		Quantity:  qty,
		UnitPrice: uint256.NewInt(price),
	})
	require.NoError(t, err)
	return id
}

func available(t *testing.T, l *Ledger, id domain.AccountID) int64 {
	t.Helper()
	n, err := l.GetAvailableBalance(id)
	require.NoError(t, err)
	return n
}

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
