package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
)

// MemoryJournal keeps journal entries in process memory. It backs tests and
// the "memory" journal backend, where nothing survives a restart.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
	failErr error
	// lostAck stores the entry and still reports failure.
	lostAck error
	seqErr  error
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// FailWith makes every subsequent Append return err; nil restores normal behaviour.
func (j *MemoryJournal) FailWith(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.failErr = err
}

// FailAfterWrite makes Append store the entry and then return err, like a
// write whose acknowledgement was lost. nil restores normal behaviour.
func (j *MemoryJournal) FailAfterWrite(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lostAck = err
}

// FailLastSeq makes LastSeq return err; nil restores normal behaviour.
func (j *MemoryJournal) FailLastSeq(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seqErr = err
}

func (j *MemoryJournal) LastSeq(context.Context) (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.seqErr != nil {
		return 0, j.seqErr
	}
	if n := len(j.entries); n > 0 {
		return j.entries[n-1].Seq, nil
	}
	return 0, nil
}

func (j *MemoryJournal) Append(_ context.Context, entry domain.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.failErr != nil {
		return j.failErr
	}
	if n := len(j.entries); n > 0 && entry.Seq <= j.entries[n-1].Seq {
		return fmt.Errorf("journal: sequence %d not after %d", entry.Seq, j.entries[n-1].Seq)
	}
	entry.Args = append([]byte(nil), entry.Args...)
	j.entries = append(j.entries, entry)
	return j.lostAck
}

func (j *MemoryJournal) Load(ctx context.Context, fn func(domain.JournalEntry) error) error {
	j.mu.Lock()
	entries := append([]domain.JournalEntry(nil), j.entries...)
	j.mu.Unlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (j *MemoryJournal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}
