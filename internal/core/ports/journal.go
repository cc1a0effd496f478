package ports

import (
	"context"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// Journal is the append-only log of committed ledger operations.
type Journal interface {
	// Append durably records entry. Entries arrive with strictly increasing Seq.
	Append(ctx context.Context, entry domain.JournalEntry) error

	// Load calls fn for every stored entry in Seq order and stops at the first error.
	Load(ctx context.Context, fn func(domain.JournalEntry) error) error
}

// SeqReporter is implemented by journals that can report the last stored
// sequence. The ledger uses it to settle appends that failed ambiguously;
// without it a failed append is taken as not stored.
type SeqReporter interface {
	LastSeq(ctx context.Context) (uint64, error)
}
