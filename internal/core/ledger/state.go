package ledger

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// State is the complete in-memory ledger: every account, delegation, panel,
// listing and trade, keyed by identifier. It is not safe for concurrent use;
// Ledger serialises access to it.
type State struct {
	seq       uint64
	accounts  map[domain.AccountID]*domain.Account
	usernames map[string]domain.AccountID
	members   map[domain.AccountID]map[domain.AccountID]struct{}
	panels    map[domain.AccountID][]*domain.Panel
	listings  []*domain.Listing // listings[i].ID == i+1
	trades    []*domain.Trade   // trades[i].ID == i+1
}

// NewState returns an empty ledger state.
func NewState() *State {
	return &State{
		accounts:  make(map[domain.AccountID]*domain.Account),
		usernames: make(map[string]domain.AccountID),
		members:   make(map[domain.AccountID]map[domain.AccountID]struct{}),
		panels:    make(map[domain.AccountID][]*domain.Panel),
	}
}

// Seq is the sequence number of the last applied operation.
func (s *State) Seq() uint64 {
	return s.seq
}

// plan is a validated mutation. Building a plan never touches state; apply
// cannot fail, so an operation either commits completely or not at all.
type plan struct {
	apply   func()
	events  []domain.Event
	listing domain.ListingID
	trade   domain.TradeID
}

// noop is returned by operations that succeed without changing anything.
var noop = &plan{}

func (p *plan) isNoop() bool {
	return p.apply == nil
}

func (s *State) account(id domain.AccountID) (*domain.Account, bool) {
	acc, ok := s.accounts[id]
	return acc, ok
}

func (s *State) listing(id domain.ListingID) (*domain.Listing, bool) {
	if id == 0 || uint64(id) > uint64(len(s.listings)) {
		return nil, false
	}
	return s.listings[id-1], true
}

func (s *State) panel(owner domain.AccountID, id uint64) (*domain.Panel, bool) {
	for _, p := range s.panels[owner] {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// recount recomputes the available energy of an account from its panels and
// its reserved and sold quantities.
func (s *State) recount(acc *domain.Account) {
	acc.Balances.Available = availableEnergy(s.panels[acc.ID], acc.Balances)
}

// availableEnergy is the net production of all panels, floored at zero, minus
// what is already reserved by open listings or sold, floored at zero again.
// Planning keeps the sum in range; an overflow here reports nothing available.
func availableEnergy(panels []*domain.Panel, b domain.Balances) int64 {
	net, ok := domain.TotalNet(panels)
	if !ok || net < 0 {
		net = 0
	}
	avail := net - b.Reserved - b.Sold
	if avail < 0 {
		return 0
	}
	return avail
}

// netFits reports whether the owner's summed panel net stays in range after
// adding delta.
func (s *State) netFits(owner domain.AccountID, delta int64) bool {
	total, ok := domain.TotalNet(s.panels[owner])
	if !ok {
		return false
	}
	_, ok = domain.AddEnergy(total, delta)
	return ok
}

func newBalances() domain.Balances {
	return domain.Balances{Earned: uint256.NewInt(0)}
}

func sortedIDs(set map[domain.AccountID]struct{}) []domain.AccountID {
	ids := make([]domain.AccountID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyPanels(src []*domain.Panel) []domain.Panel {
	out := make([]domain.Panel, len(src))
	for i, p := range src {
		out[i] = *p
	}
	return out
}
