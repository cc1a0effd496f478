package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

const defaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore claims client request keys in Redis.
// Key format: idem:<account_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. Keys expire after ttl, or a day when ttl <= 0.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim atomically records the key and reports whether it was unused.
func (s *IdempotencyStore) Claim(ctx context.Context, account domain.AccountID, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(account, key), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency claim: %w", err)
	}
	return ok, nil
}

// Release forgets a claimed key so the request may be retried.
func (s *IdempotencyStore) Release(ctx context.Context, account domain.AccountID, key string) error {
	if err := s.client.Del(ctx, s.key(account, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(account domain.AccountID, key string) string {
	return fmt.Sprintf("idem:%s:%s", account, key)
}
