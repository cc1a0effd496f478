package ports

import (
	"context"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// EventEmitter receives change records from the ledger. Emit is called while the
// ledger holds its write lock and must not block.
type EventEmitter interface {
	Emit(event domain.Event)
}

// EventSink delivers a single change record to external observers.
type EventSink interface {
	Publish(ctx context.Context, event domain.Event) error
}
