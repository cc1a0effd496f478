package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

func validateIdentity(id domain.AccountID, username, fullName string, hash domain.CredentialHash) error {
	if strings.TrimSpace(string(id)) == "" || strings.TrimSpace(username) == "" || strings.TrimSpace(fullName) == "" {
		return domain.ErrInvalidAccount
	}
	if hash.IsZero() {
		return domain.ErrInvalidCredential
	}
	return nil
}

// checkUnique rejects an identity whose account ID or username is taken.
func (s *State) checkUnique(id domain.AccountID, username string) error {
	if _, ok := s.accounts[id]; ok {
		return domain.ErrDuplicateAccount
	}
	if _, ok := s.usernames[username]; ok {
		return domain.ErrDuplicateAccount
	}
	return nil
}

func (s *State) insertAccount(acc *domain.Account) {
	s.accounts[acc.ID] = acc
	s.usernames[acc.Username] = acc.ID
	if acc.IsManager() {
		s.members[acc.ID] = make(map[domain.AccountID]struct{})
	}
}

func (s *State) planRegister(in domain.RegisterAccount, at time.Time) (*plan, error) {
	if err := validateIdentity(in.Caller, in.Username, in.FullName, in.CredentialHash); err != nil {
		return nil, err
	}
	if err := s.checkUnique(in.Caller, in.Username); err != nil {
		return nil, err
	}

	role := domain.RoleUser
	if in.IsManager {
		role = domain.RoleManager
	}
	acc := &domain.Account{
		ID:             in.Caller,
		Username:       in.Username,
		FullName:       in.FullName,
		CredentialHash: in.CredentialHash,
		Role:           role,
		RegisteredAt:   at,
		Balances:       newBalances(),
	}

	return &plan{
		apply: func() { s.insertAccount(acc) },
		events: []domain.Event{
			{Type: domain.EventAccountRegistered, Caller: in.Caller, Account: in.Caller},
		},
	}, nil
}

// planRegisterManager validates the manager identity and every member before
// anything is written, so a bad member leaves neither the manager nor any
// delegation behind.
func (s *State) planRegisterManager(in domain.RegisterManager, at time.Time) (*plan, error) {
	if err := validateIdentity(in.Caller, in.Username, in.FullName, in.CredentialHash); err != nil {
		return nil, err
	}
	if err := s.checkUnique(in.Caller, in.Username); err != nil {
		return nil, err
	}

	seen := make(map[domain.AccountID]struct{}, len(in.Members))
	members := make([]*domain.Account, 0, len(in.Members))
	for _, id := range in.Members {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		member, ok := s.account(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMember, id)
		}
		if member.IsManager() {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotAUser, id)
		}
		if member.Manager != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyManaged, id)
		}
		members = append(members, member)
	}

	manager := &domain.Account{
		ID:             in.Caller,
		Username:       in.Username,
		FullName:       in.FullName,
		CredentialHash: in.CredentialHash,
		Role:           domain.RoleManager,
		RegisteredAt:   at,
		Balances:       newBalances(),
	}

	events := make([]domain.Event, 0, len(members)+1)
	events = append(events, domain.Event{Type: domain.EventAccountRegistered, Caller: in.Caller, Account: in.Caller})
	for _, m := range members {
		events = append(events, domain.Event{Type: domain.EventMemberAssigned, Caller: in.Caller, Account: in.Caller, Member: m.ID})
	}

	return &plan{
		apply: func() {
			s.insertAccount(manager)
			for _, m := range members {
				m.Manager = manager.ID
				s.members[manager.ID][m.ID] = struct{}{}
			}
		},
		events: events,
	}, nil
}

func (s *State) planRotateCredential(in domain.RotateCredential) (*plan, error) {
	acc, ok := s.account(in.Account)
	if !ok {
		return nil, domain.ErrUnknownAccount
	}
	if err := authorize(s, in.Caller, in.Account, needSelf); err != nil {
		return nil, err
	}
	if in.Next.IsZero() || !acc.CredentialHash.Equal(in.Current) {
		return nil, domain.ErrInvalidCredential
	}

	next := in.Next
	return &plan{
		apply: func() { acc.CredentialHash = next },
		events: []domain.Event{
			{Type: domain.EventCredentialRotated, Caller: in.Caller, Account: in.Account},
		},
	}, nil
}

// authenticate never fails; unknown accounts simply do not match.
func (s *State) authenticate(id domain.AccountID, hash domain.CredentialHash) bool {
	acc, ok := s.account(id)
	if !ok || hash.IsZero() {
		return false
	}
	return acc.CredentialHash.Equal(hash)
}
