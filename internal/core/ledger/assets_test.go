package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

func TestAddPanelToUser_EfficiencyBounds(t *testing.T) {
	tests := []struct {
		efficiency int
		wantErr    error
	}{
		{0, nil},
		{100, nil},
		{101, domain.ErrInvalidReading},
		{-1, domain.ErrInvalidReading},
	}

	for _, tc := range tests {
		l := newTestLedger(t)
		register(t, l, alice, "alice")

		err := l.AddPanelToUser(ctx, domain.AddPanel{
			Caller: alice, Owner: alice, PanelID: 1, Capacity: 500,
			Location: "Location A", Produced: 300, Consumed: 100, Efficiency: tc.efficiency,
		})
		if tc.wantErr == nil {
			assert.NoError(t, err, "efficiency %d", tc.efficiency)
		} else {
			assert.ErrorIs(t, err, tc.wantErr, "efficiency %d", tc.efficiency)
		}
	}
}

func TestAddPanelToUser_InvalidReadings(t *testing.T) {
	l := newTestLedger(t)
	register(t, l, alice, "alice")

	bad := []domain.AddPanel{
		{Caller: alice, Owner: alice, PanelID: 1, Capacity: 0, Produced: 1, Efficiency: 50},
		{Caller: alice, Owner: alice, PanelID: 1, Capacity: -5, Produced: 1, Efficiency: 50},
		{Caller: alice, Owner: alice, PanelID: 1, Capacity: 10, Produced: -1, Efficiency: 50},
		{Caller: alice, Owner: alice, PanelID: 1, Capacity: 10, Consumed: -1, Efficiency: 50},
	}
	for _, in := range bad {
		assert.ErrorIs(t, l.AddPanelToUser(ctx, in), domain.ErrInvalidReading)
	}

	panels, err := l.GetPanelsOf(alice)
	require.NoError(t, err)
	assert.Empty(t, panels)
}

func TestAddPanelToUser_Authorization(t *testing.T) {
	l := newTestLedger(t)
	register(t, l, alice, "alice")
	register(t, l, bob, "bob")
	registerManager(t, l, carol, "carol", alice)

	in := domain.AddPanel{Owner: alice, PanelID: 1, Capacity: 500, Produced: 300, Consumed: 100, Efficiency: 95}

	in.Caller = bob
	assert.ErrorIs(t, l.AddPanelToUser(ctx, in), domain.ErrUnauthorized)

	in.Caller = carol
	require.NoError(t, l.AddPanelToUser(ctx, in))

	in.Caller = alice
	assert.ErrorIs(t, l.AddPanelToUser(ctx, in), domain.ErrDuplicatePanel)

	in.Owner = eve
	in.Caller = eve
	assert.ErrorIs(t, l.AddPanelToUser(ctx, in), domain.ErrUnknownAccount)

	// Panel IDs are scoped per owner.
	addPanel(t, l, bob, 1, 10, 0)
}

func TestAvailableBalance_SumsPanelsFlooredAtZero(t *testing.T) {
	l := newTestLedger(t)
	register(t, l, alice, "alice")
	register(t, l, dave, "dave")

	// Seed data: panels 1, 4, 5 and 6 belong to Alice.
	addPanel(t, l, alice, 1, 300, 100)
	assert.Equal(t, int64(200), available(t, l, alice))
	addPanel(t, l, alice, 4, 500, 400)
	addPanel(t, l, alice, 5, 500, 300)
	addPanel(t, l, alice, 6, 600, 100)
	assert.Equal(t, int64(200+100+200+500), available(t, l, alice))

	addPanel(t, l, dave, 3, 100, 300)
	assert.Equal(t, int64(0), available(t, l, dave))
	addPanel(t, l, dave, 8, 150, 0)
	assert.Equal(t, int64(0), available(t, l, dave))
	addPanel(t, l, dave, 9, 100, 0)
	assert.Equal(t, int64(50), available(t, l, dave))
}

func TestAllocateEnergy(t *testing.T) {
	l := newTestLedger(t)
	register(t, l, alice, "alice")
	register(t, l, bob, "bob")
	addPanel(t, l, alice, 1, 300, 100)
	require.NoError(t, l.AddPanelToUser(ctx, domain.AddPanel{
		Caller: bob, Owner: bob, PanelID: 2, Capacity: 250, Produced: 200, Consumed: 100, Efficiency: 80,
	}))

	listing := post(t, l, alice, 200, 10)
	_, err := l.PurchaseEnergy(ctx, domain.Purchase{Caller: bob, Listing: listing, Buyer: bob, Payment: u256(2000)})
	require.NoError(t, err)

	before := available(t, l, bob)

	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 2, Quantity: 151})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 9, Quantity: 10})
	assert.ErrorIs(t, err, domain.ErrPanelNotFound)
	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 2, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidReading)
	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: alice, Owner: bob, PanelID: 2, Quantity: 10})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 2, Quantity: 150}))

	bal, err := l.GetBalances(bob)
	require.NoError(t, err)
	assert.Equal(t, int64(200), bal.Purchased)
	assert.Equal(t, int64(150), bal.Allocated)
	assert.Equal(t, int64(50), bal.Unallocated())
	assert.Equal(t, before+150, bal.Available)

	panels, err := l.GetPanelsOf(bob)
	require.NoError(t, err)
	assert.Equal(t, int64(150), panels[0].Stored)

	// Alice has no purchased energy to allocate.
	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: alice, Owner: alice, PanelID: 1, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestAddPanelToUser_NetSumOverflowRejected(t *testing.T) {
	t.Run("negative sum would wrap positive", func(t *testing.T) {
		l := newTestLedger(t)
		register(t, l, eve, "eve")
		require.NoError(t, l.AddPanelToUser(ctx, domain.AddPanel{
			Caller: eve, Owner: eve, PanelID: 1, Capacity: 10, Consumed: math.MaxInt64, Efficiency: 50,
		}))

		err := l.AddPanelToUser(ctx, domain.AddPanel{
			Caller: eve, Owner: eve, PanelID: 2, Capacity: 10, Consumed: 10, Efficiency: 50,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidReading)
		assert.Equal(t, int64(0), available(t, l, eve))

		_, err = l.PostEnergyForSale(ctx, domain.PostListing{Caller: eve, Seller: eve, Quantity: 1_000_000, UnitPrice: u256(1)})
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	})

	t.Run("positive sum would wrap negative", func(t *testing.T) {
		l := newTestLedger(t)
		register(t, l, alice, "alice")
		require.NoError(t, l.AddPanelToUser(ctx, domain.AddPanel{
			Caller: alice, Owner: alice, PanelID: 1, Capacity: 10, Produced: math.MaxInt64, Consumed: 100, Efficiency: 50,
		}))
		before := available(t, l, alice)

		err := l.AddPanelToUser(ctx, domain.AddPanel{
			Caller: alice, Owner: alice, PanelID: 2, Capacity: 500, Produced: 110, Efficiency: 50,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidReading)
		assert.Equal(t, before, available(t, l, alice))

		panels, err := l.GetPanelsOf(alice)
		require.NoError(t, err)
		assert.Len(t, panels, 1)
	})
}

func TestAllocateEnergy_ConsumptionHeavyPanelRespectsCapacity(t *testing.T) {
	l := newTestLedger(t)
	register(t, l, alice, "alice")
	register(t, l, bob, "bob")
	addPanel(t, l, alice, 1, 600, 100)
	require.NoError(t, l.AddPanelToUser(ctx, domain.AddPanel{
		Caller: bob, Owner: bob, PanelID: 2, Capacity: 50, Consumed: 400, Efficiency: 80,
	}))

	listing := post(t, l, alice, 500, 1)
	_, err := l.PurchaseEnergy(ctx, domain.Purchase{Caller: bob, Listing: listing, Buyer: bob, Payment: u256(500)})
	require.NoError(t, err)

	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 2, Quantity: 440})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	require.NoError(t, l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 2, Quantity: 50}))
	err = l.AllocateEnergy(ctx, domain.AllocateEnergy{Caller: bob, Owner: bob, PanelID: 2, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	panels, err := l.GetPanelsOf(bob)
	require.NoError(t, err)
	assert.Equal(t, int64(50), panels[0].Stored)
	assert.LessOrEqual(t, panels[0].Stored, panels[0].Capacity)
}
