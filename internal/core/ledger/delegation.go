package ledger

import (
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// planAssignMember adds a member to a manager's set. A user belongs to at most
// one manager; re-assigning a member to its current manager is a no-op.
func (s *State) planAssignMember(in domain.AssignMember) (*plan, error) {
	if _, ok := s.account(in.Manager); !ok {
		return nil, domain.ErrUnknownAccount
	}
	if err := authorize(s, in.Caller, in.Manager, needManager); err != nil {
		return nil, err
	}

	member, ok := s.account(in.Member)
	if !ok {
		return nil, domain.ErrUnknownMember
	}
	if member.IsManager() {
		return nil, domain.ErrNotAUser
	}
	switch member.Manager {
	case in.Manager:
		return noop, nil
	case "":
	default:
		return nil, domain.ErrAlreadyManaged
	}

	manager := in.Manager
	return &plan{
		apply: func() {
			member.Manager = manager
			s.members[manager][member.ID] = struct{}{}
		},
		events: []domain.Event{
			{Type: domain.EventMemberAssigned, Caller: in.Caller, Account: manager, Member: member.ID},
		},
	}, nil
}

func (s *State) isManagedBy(manager, member domain.AccountID) bool {
	set, ok := s.members[manager]
	if !ok {
		return false
	}
	_, ok = set[member]
	return ok
}

func (s *State) membersOf(manager domain.AccountID) ([]domain.AccountID, error) {
	acc, ok := s.account(manager)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	if !acc.IsManager() {
		return nil, domain.ErrNotAManager
	}
	return sortedIDs(s.members[manager]), nil
}

// managedPanels lists the panels of every member, grouped by member in ID order.
func (s *State) managedPanels(manager, caller domain.AccountID) ([]domain.Panel, error) {
	if err := authorize(s, caller, manager, needManager); err != nil {
		return nil, err
	}
	out := []domain.Panel{}
	for _, id := range sortedIDs(s.members[manager]) {
		out = append(out, copyPanels(s.panels[id])...)
	}
	return out, nil
}

// managedTrades lists every trade a member took part in, in trade order.
func (s *State) managedTrades(manager, caller domain.AccountID) ([]*domain.Trade, error) {
	if err := authorize(s, caller, manager, needManager); err != nil {
		return nil, err
	}
	set := s.members[manager]
	out := []*domain.Trade{}
	for _, t := range s.trades {
		_, seller := set[t.Seller]
		_, buyer := set[t.Buyer]
		if seller || buyer {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}
