package ledger

import (
	"time"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

func (s *State) planAddPanel(in domain.AddPanel, at time.Time) (*plan, error) {
	owner, ok := s.account(in.Owner)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	if err := authorize(s, in.Caller, in.Owner, needSelfOrManager); err != nil {
		return nil, err
	}
	if err := domain.ValidateReading(in.Capacity, in.Produced, in.Consumed, in.Efficiency); err != nil {
		return nil, err
	}
	if _, exists := s.panel(in.Owner, in.PanelID); exists {
		return nil, domain.ErrDuplicatePanel
	}
	if !s.netFits(in.Owner, in.Produced-in.Consumed) {
		return nil, domain.ErrInvalidReading
	}

	p := &domain.Panel{
		ID:           in.PanelID,
		Owner:        in.Owner,
		Capacity:     in.Capacity,
		Location:     in.Location,
		Produced:     in.Produced,
		Consumed:     in.Consumed,
		Efficiency:   in.Efficiency,
		RegisteredAt: at,
	}

	return &plan{
		apply: func() {
			s.panels[owner.ID] = append(s.panels[owner.ID], p)
			s.recount(owner)
		},
		events: []domain.Event{
			{Type: domain.EventPanelAdded, Caller: in.Caller, Account: in.Owner, Panel: in.PanelID},
		},
	}, nil
}

// planAllocateEnergy stores purchased energy on a panel, up to its capacity.
// Stored energy counts towards the owner's available balance.
func (s *State) planAllocateEnergy(in domain.AllocateEnergy) (*plan, error) {
	owner, ok := s.account(in.Owner)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	if err := authorize(s, in.Caller, in.Owner, needSelfOrManager); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidReading
	}
	p, ok := s.panel(in.Owner, in.PanelID)
	if !ok {
		return nil, domain.ErrPanelNotFound
	}
	if in.Quantity > owner.Balances.Unallocated() {
		return nil, domain.ErrInsufficientBalance
	}
	// Both the panel's own surplus and what is already stored count against capacity.
	if in.Quantity > p.Capacity-max(p.Net(), p.Stored) {
		return nil, domain.ErrCapacityExceeded
	}
	if !s.netFits(in.Owner, in.Quantity) {
		return nil, domain.ErrInvalidReading
	}

	q := in.Quantity
	return &plan{
		apply: func() {
			p.Stored += q
			owner.Balances.Allocated += q
			s.recount(owner)
		},
		events: []domain.Event{
			{Type: domain.EventEnergyAllocated, Caller: in.Caller, Account: in.Owner, Panel: in.PanelID, Amount: q},
		},
	}, nil
}

func (s *State) panelsOf(owner domain.AccountID) ([]domain.Panel, error) {
	if _, ok := s.account(owner); !ok {
		return nil, domain.ErrUnknownAccount
	}
	return copyPanels(s.panels[owner]), nil
}
