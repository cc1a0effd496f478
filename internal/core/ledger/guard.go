package ledger

import "github.com/lumin-energy/energy-ledger/internal/core/domain"

// requirement is the access rule a mutating operation asks the guard for.
type requirement int

const (
	// needSelf allows only the target account itself.
	needSelf requirement = iota
	// needSelfOrManager also allows the target's manager.
	needSelfOrManager
	// needManager allows only the target itself, and only if it is a manager.
	needManager
)

// authorize checks whether caller may act on target. The target must already
// be known to exist; callers report ErrUnknownAccount before asking.
func authorize(s *State, caller, target domain.AccountID, need requirement) error {
	acc, ok := s.account(target)
	if !ok {
		return domain.ErrUnknownAccount
	}

	switch need {
	case needSelf:
		if caller != target {
			return domain.ErrUnauthorized
		}
	case needSelfOrManager:
		if caller != target && (acc.Manager == "" || acc.Manager != caller) {
			return domain.ErrUnauthorized
		}
	case needManager:
		if caller != target {
			return domain.ErrUnauthorized
		}
		if !acc.IsManager() {
			return domain.ErrNotAManager
		}
	default:
		return domain.ErrUnauthorized
	}
	return nil
}
