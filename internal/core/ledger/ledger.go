// Package ledger implements the energy trading ledger: identities, delegation,
// solar panels and the energy marketplace, applied one operation at a time.
//
// Every mutation runs in three steps under the write lock: build a plan
// against the current state (pure validation), append the operation to the
// journal, apply the plan. A failure in either of the first two steps leaves
// the state untouched. Committed operations are replayed from the journal at
// startup to rebuild the state.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

var (
	_ ports.IdentityService   = (*Ledger)(nil)
	_ ports.DelegationService = (*Ledger)(nil)
	_ ports.AssetService      = (*Ledger)(nil)
	_ ports.MarketService     = (*Ledger)(nil)
)

// Ledger is the single writer of a State.
type Ledger struct {
	mu      sync.RWMutex
	state   *State
	journal ports.Journal
	emitter ports.EventEmitter
	now     func() time.Time
	log     zerolog.Logger

	// pending is an operation whose journal append failed but may have landed.
	pending *pendingCommit
}

type pendingCommit struct {
	op  domain.Op
	seq uint64
	at  time.Time
	p   *plan
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal makes the ledger record every committed operation.
func WithJournal(j ports.Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithEmitter sends change records to e after each commit.
func WithEmitter(e ports.EventEmitter) Option {
	return func(l *Ledger) { l.emitter = e }
}

// WithClock overrides the time source used to stamp operations.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns an empty ledger.
func New(log zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		state: NewState(),
		now:   time.Now,
		log:   log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// execute runs one mutating operation atomically.
func (l *Ledger) execute(ctx context.Context, op domain.Op, caller domain.AccountID, args any, build func(s *State, at time.Time) (*plan, error)) (*plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.settle(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	at := l.now().UTC()
	p, err := build(l.state, at)
	if err != nil {
		l.log.Debug().Err(err).Str("op", string(op)).Str("caller", string(caller)).Msg("operation rejected")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.isNoop() {
		return p, nil
	}

	seq := l.state.seq + 1
	if l.journal != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("%s: encode journal entry: %w", op, err)
		}
		entry := domain.JournalEntry{Seq: seq, Op: op, Caller: caller, At: at, Args: raw}
		if err := l.journal.Append(ctx, entry); err != nil {
			l.log.Error().Err(err).Str("op", string(op)).Uint64("seq", seq).Msg("journal append failed")
			l.pending = &pendingCommit{op: op, seq: seq, at: at, p: p}
			if stored, _ := l.settle(ctx); stored {
				return p, nil
			}
			return nil, fmt.Errorf("%s: journal append: %w", op, err)
		}
	}

	l.commit(op, seq, at, p)
	return p, nil
}

func (l *Ledger) commit(op domain.Op, seq uint64, at time.Time, p *plan) {
	l.state.seq = seq
	p.apply()
	l.emit(seq, at, p.events)
	l.log.Info().Str("op", string(op)).Uint64("seq", seq).Msg("operation committed")
}

// settle resolves a pending append by asking the journal for its last
// sequence. It reports whether the pending operation turned out to be stored,
// in which case it is applied now. ErrJournalInDoubt means the outcome is
// still unknown and the operation stays pending.
func (l *Ledger) settle(ctx context.Context) (bool, error) {
	pc := l.pending
	if pc == nil {
		return false, nil
	}
	reporter, ok := l.journal.(ports.SeqReporter)
	if !ok {
		l.pending = nil
		return false, nil
	}

	last, err := reporter.LastSeq(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrJournalInDoubt, err)
	}
	switch last {
	case pc.seq:
		l.pending = nil
		l.log.Warn().Str("op", string(pc.op)).Uint64("seq", pc.seq).Msg("failed append was stored, applying")
		l.commit(pc.op, pc.seq, pc.at, pc.p)
		return true, nil
	case pc.seq - 1:
		l.pending = nil
		return false, nil
	default:
		return false, fmt.Errorf("%w: journal at %d, ledger at %d", domain.ErrJournalInDoubt, last, l.state.seq)
	}
}

func (l *Ledger) emit(seq uint64, at time.Time, events []domain.Event) {
	if l.emitter == nil {
		return
	}
	for _, ev := range events {
		ev.ID = uuid.Must(uuid.NewV7()).String()
		ev.Seq = seq
		ev.At = at
		l.emitter.Emit(ev)
	}
}

// Replay rebuilds state from the journal. It must run before the ledger serves
// any operation; replayed operations are neither journaled again nor emitted.
func (l *Ledger) Replay(ctx context.Context) (int, error) {
	if l.journal == nil {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	err := l.journal.Load(ctx, func(e domain.JournalEntry) error {
		if e.Seq != l.state.seq+1 {
			return fmt.Errorf("replay: entry %d out of order, expected %d", e.Seq, l.state.seq+1)
		}
		p, err := l.state.planEntry(e)
		if err != nil {
			return fmt.Errorf("replay: entry %d (%s): %w", e.Seq, e.Op, err)
		}
		l.state.seq = e.Seq
		if !p.isNoop() {
			p.apply()
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}

	l.log.Info().Int("entries", n).Uint64("seq", l.state.seq).Msg("journal replayed")
	return n, nil
}

// planEntry decodes a journal entry and plans it exactly as the live operation did.
func (s *State) planEntry(e domain.JournalEntry) (*plan, error) {
	at := e.At.UTC()
	switch e.Op {
	case domain.OpRegister:
		var in domain.RegisterAccount
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planRegister(in, at)
	case domain.OpRegisterManager:
		var in domain.RegisterManager
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planRegisterManager(in, at)
	case domain.OpRotateCredential:
		var in domain.RotateCredential
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planRotateCredential(in)
	case domain.OpAssignMember:
		var in domain.AssignMember
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planAssignMember(in)
	case domain.OpAddPanel:
		var in domain.AddPanel
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planAddPanel(in, at)
	case domain.OpAllocateEnergy:
		var in domain.AllocateEnergy
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planAllocateEnergy(in)
	case domain.OpPostListing:
		var in domain.PostListing
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planPostListing(in, at)
	case domain.OpPurchase:
		var in domain.Purchase
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planPurchase(in, at)
	case domain.OpCancelListing:
		var in domain.CancelListing
		if err := json.Unmarshal(e.Args, &in); err != nil {
			return nil, err
		}
		return s.planCancelListing(in, at)
	default:
		return nil, fmt.Errorf("unknown operation %q", e.Op)
	}
}

// ── Mutations ────────────────────────────────────────────────────────────────

// Register creates a user or manager account for in.Caller.
func (l *Ledger) Register(ctx context.Context, in domain.RegisterAccount) (domain.AccountID, error) {
	_, err := l.execute(ctx, domain.OpRegister, in.Caller, in, func(s *State, at time.Time) (*plan, error) {
		return s.planRegister(in, at)
	})
	if err != nil {
		return "", err
	}
	return in.Caller, nil
}

// RegisterManagerWithUsers creates a manager account and delegates every
// listed member to it, or does nothing at all.
func (l *Ledger) RegisterManagerWithUsers(ctx context.Context, in domain.RegisterManager) (domain.AccountID, error) {
	_, err := l.execute(ctx, domain.OpRegisterManager, in.Caller, in, func(s *State, at time.Time) (*plan, error) {
		return s.planRegisterManager(in, at)
	})
	if err != nil {
		return "", err
	}
	return in.Caller, nil
}

// RotateCredential replaces an account's credential digest.
func (l *Ledger) RotateCredential(ctx context.Context, in domain.RotateCredential) error {
	_, err := l.execute(ctx, domain.OpRotateCredential, in.Caller, in, func(s *State, _ time.Time) (*plan, error) {
		return s.planRotateCredential(in)
	})
	return err
}

// AssignMember places a user under a manager.
func (l *Ledger) AssignMember(ctx context.Context, in domain.AssignMember) error {
	_, err := l.execute(ctx, domain.OpAssignMember, in.Caller, in, func(s *State, _ time.Time) (*plan, error) {
		return s.planAssignMember(in)
	})
	return err
}

// AddPanelToUser registers a panel under its owner.
func (l *Ledger) AddPanelToUser(ctx context.Context, in domain.AddPanel) error {
	_, err := l.execute(ctx, domain.OpAddPanel, in.Caller, in, func(s *State, at time.Time) (*plan, error) {
		return s.planAddPanel(in, at)
	})
	return err
}

// AllocateEnergy stores purchased energy on one of the owner's panels.
func (l *Ledger) AllocateEnergy(ctx context.Context, in domain.AllocateEnergy) error {
	_, err := l.execute(ctx, domain.OpAllocateEnergy, in.Caller, in, func(s *State, _ time.Time) (*plan, error) {
		return s.planAllocateEnergy(in)
	})
	return err
}

// PostEnergyForSale opens a listing and returns its ID.
func (l *Ledger) PostEnergyForSale(ctx context.Context, in domain.PostListing) (domain.ListingID, error) {
	p, err := l.execute(ctx, domain.OpPostListing, in.Caller, in, func(s *State, at time.Time) (*plan, error) {
		return s.planPostListing(in, at)
	})
	if err != nil {
		return 0, err
	}
	return p.listing, nil
}

// PurchaseEnergy fills a listing and returns the resulting trade ID.
func (l *Ledger) PurchaseEnergy(ctx context.Context, in domain.Purchase) (domain.TradeID, error) {
	p, err := l.execute(ctx, domain.OpPurchase, in.Caller, in, func(s *State, at time.Time) (*plan, error) {
		return s.planPurchase(in, at)
	})
	if err != nil {
		return 0, err
	}
	return p.trade, nil
}

// CancelListing withdraws an open listing.
func (l *Ledger) CancelListing(ctx context.Context, in domain.CancelListing) error {
	_, err := l.execute(ctx, domain.OpCancelListing, in.Caller, in, func(s *State, at time.Time) (*plan, error) {
		return s.planCancelListing(in, at)
	})
	return err
}
