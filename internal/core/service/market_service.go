package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

// IdempotencyStore abstracts the request-key store (Redis).
type IdempotencyStore interface {
	// Claim records key for account and reports whether it was unused.
	Claim(ctx context.Context, account domain.AccountID, key string) (bool, error)
	Release(ctx context.Context, account domain.AccountID, key string) error
}

// MarketService guards market mutations with client-supplied idempotency keys.
// An empty key skips the check.
type MarketService struct {
	market ports.MarketService
	keys   IdempotencyStore
	log    zerolog.Logger
}

func NewMarketService(market ports.MarketService, keys IdempotencyStore, log zerolog.Logger) *MarketService {
	return &MarketService{market: market, keys: keys, log: log}
}

func (s *MarketService) PostEnergyForSale(ctx context.Context, key string, in domain.PostListing) (domain.ListingID, error) {
	var id domain.ListingID
	err := s.guard(ctx, in.Caller, key, func() error {
		var err error
		id, err = s.market.PostEnergyForSale(ctx, in)
		return err
	})
	return id, err
}

func (s *MarketService) PurchaseEnergy(ctx context.Context, key string, in domain.Purchase) (domain.TradeID, error) {
	var id domain.TradeID
	err := s.guard(ctx, in.Caller, key, func() error {
		var err error
		id, err = s.market.PurchaseEnergy(ctx, in)
		return err
	})
	return id, err
}

func (s *MarketService) CancelListing(ctx context.Context, key string, in domain.CancelListing) error {
	return s.guard(ctx, in.Caller, key, func() error {
		return s.market.CancelListing(ctx, in)
	})
}

func (s *MarketService) guard(ctx context.Context, caller domain.AccountID, key string, run func() error) error {
	if key == "" || s.keys == nil {
		return run()
	}

	// A store outage must not take the market down.
	fresh, err := s.keys.Claim(ctx, caller, key)
	if err != nil {
		s.log.Warn().Err(err).Str("caller", string(caller)).Msg("idempotency claim failed, processing anyway")
		return run()
	}
	if !fresh {
		s.log.Debug().Str("caller", string(caller)).Str("key", key).Msg("duplicate request rejected")
		return fmt.Errorf("idempotency key %q: %w", key, domain.ErrDuplicateRequest)
	}

	if err := run(); err != nil {
		// Rejected requests leave no trace, so the key may be retried.
		if relErr := s.keys.Release(ctx, caller, key); relErr != nil {
			s.log.Warn().Err(relErr).Str("caller", string(caller)).Msg("failed to release idempotency key")
		}
		return err
	}
	return nil
}
