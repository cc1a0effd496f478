package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// AccountDirectory is the slice of the ledger the auth service reads.
type AccountDirectory interface {
	GetAccountByUsername(username string) (*domain.Account, error)
	Authenticate(id domain.AccountID, hash domain.CredentialHash) bool
}

// AuthService implements login against ledger credentials.
type AuthService struct {
	accounts  AccountDirectory
	jwtSecret string
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(accounts AccountDirectory, jwtSecret string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{accounts: accounts, jwtSecret: jwtSecret, tokenTTL: tokenTTL, now: time.Now}
}

// Login hashes password the same way the ledger stores credentials and issues
// a signed token for the matching account.
func (s *AuthService) Login(_ context.Context, username, password string) (string, *domain.Account, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredential
	}

	acc, err := s.accounts.GetAccountByUsername(username)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownAccount) {
			return "", nil, domain.ErrInvalidCredential
		}
		return "", nil, err
	}

	if !s.accounts.Authenticate(acc.ID, domain.HashPassword(password)) {
		return "", nil, domain.ErrInvalidCredential
	}

	token, err := s.generateToken(acc)
	if err != nil {
		return "", nil, err
	}
	return token, acc, nil
}

func (s *AuthService) generateToken(acc *domain.Account) (string, error) {
	claims := jwt.MapClaims{
		"account_id": string(acc.ID),
		"username":   acc.Username,
		"role":       string(acc.Role),
		"exp":        s.now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
