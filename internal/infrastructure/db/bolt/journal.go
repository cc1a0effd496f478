// Package bolt stores the ledger journal in an embedded bbolt file.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

var bucketJournal = []byte("journal")

// ErrSequenceOrder is returned when an entry does not follow the last stored one.
var ErrSequenceOrder = errors.New("journal sequence out of order")

var (
	_ ports.Journal     = (*Journal)(nil)
	_ ports.SeqReporter = (*Journal)(nil)
)

// Journal implements ports.Journal. Keys are big-endian sequence numbers so a
// cursor walks entries in commit order.
type Journal struct {
	db *bbolt.DB
}

// Open creates or opens the journal file at path.
func Open(path string) (*Journal, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketJournal)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt init: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

type record struct {
	Op     domain.Op        `json:"op"`
	Caller domain.AccountID `json:"caller"`
	At     time.Time        `json:"at"`
	Args   json.RawMessage  `json:"args"`
}

func (j *Journal) Append(_ context.Context, entry domain.JournalEntry) error {
	val, err := json.Marshal(record{Op: entry.Op, Caller: entry.Caller, At: entry.At.UTC(), Args: entry.Args})
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	return j.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketJournal)
		if last, _ := b.Cursor().Last(); last != nil && binary.BigEndian.Uint64(last) >= entry.Seq {
			return fmt.Errorf("%w: %d after %d", ErrSequenceOrder, entry.Seq, binary.BigEndian.Uint64(last))
		}
		return b.Put(seqKey(entry.Seq), val)
	})
}

func (j *Journal) Load(ctx context.Context, fn func(domain.JournalEntry) error) error {
	return j.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketJournal).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode journal entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entry := domain.JournalEntry{
				Seq:    binary.BigEndian.Uint64(k),
				Op:     r.Op,
				Caller: r.Caller,
				At:     r.At,
				Args:   append([]byte(nil), r.Args...),
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}

// LastSeq returns the highest stored sequence, 0 when empty.
func (j *Journal) LastSeq(context.Context) (uint64, error) {
	var last uint64
	err := j.db.View(func(tx *bbolt.Tx) error {
		if k, _ := tx.Bucket(bucketJournal).Cursor().Last(); k != nil {
			last = binary.BigEndian.Uint64(k)
		}
		return nil
	})
	return last, err
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
