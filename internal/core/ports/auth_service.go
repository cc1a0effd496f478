package ports

import (
	"context"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// AuthService exchanges a username and password for a bearer token.
type AuthService interface {
	Login(ctx context.Context, username, password string) (string, *domain.Account, error)
}
