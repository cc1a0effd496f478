package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ledger"
)

func newLedgerWithCarol(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New(zerolog.Nop())
	_, err := l.Register(context.Background(), domain.RegisterAccount{
		Caller:         "0xca401",
		Username:       "Carol",
		FullName:       "Carol Manager",
		CredentialHash: domain.HashPassword("s3cret"),
		IsManager:      true,
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return l
}

func TestAuthService_Login_Success(t *testing.T) {
	svc := NewAuthService(newLedgerWithCarol(t), "secret", time.Hour)

	token, acc, err := svc.Login(context.Background(), "Carol", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if acc == nil || acc.ID != "0xca401" {
		t.Fatalf("unexpected account: %+v", acc)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != string(domain.RoleManager) {
		t.Fatalf("expected role %s, got %v", domain.RoleManager, claims["role"])
	}
	if claims["account_id"] != "0xca401" {
		t.Fatalf("unexpected account_id claim: %v", claims["account_id"])
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	svc := NewAuthService(newLedgerWithCarol(t), "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "Carol", "badpass"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_Login_UnknownUserLooksLikeBadPassword(t *testing.T) {
	svc := NewAuthService(newLedgerWithCarol(t), "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "ghost", "pass"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_Login_Validation(t *testing.T) {
	svc := NewAuthService(newLedgerWithCarol(t), "secret", time.Hour)

	if _, _, err := svc.Login(context.Background(), "", "pass"); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "Carol", ""); !errors.Is(err, domain.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestAuthService_TokenExpiry(t *testing.T) {
	svc := NewAuthService(newLedgerWithCarol(t), "secret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := svc.Login(context.Background(), "Carol", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, err = jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expired token, got %v", err)
	}
}
