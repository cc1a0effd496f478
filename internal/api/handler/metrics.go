package handler

import (
	"errors"

	"github.com/lumin-energy/energy-ledger/internal/api/metrics"
	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// record counts the outcome of a market mutation and, when the client sent
// an idempotency key, whether the key was fresh.
func record(op domain.Op, key string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateRequest):
		result = "duplicate"
	case errors.Is(err, domain.ErrListingNotFound), errors.Is(err, domain.ErrUnknownAccount):
		result = "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		result = "forbidden"
	case errors.Is(err, domain.ErrListingNotOpen):
		result = "conflict"
	default:
		result = "rejected"
	}
	metrics.OperationsTotal.WithLabelValues(string(op), result).Inc()

	if key == "" {
		return
	}
	if result == "duplicate" {
		metrics.IdempotencyTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.IdempotencyTotal.WithLabelValues("miss").Inc()
	}
}
