package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lumin-energy/energy-ledger/internal/core/domain"
	"github.com/lumin-energy/energy-ledger/internal/core/ports"
)

const collectionJournal = "journal"

// ErrSequenceTaken is returned when an entry with the same sequence exists.
var ErrSequenceTaken = errors.New("journal sequence already recorded")

var (
	_ ports.Journal     = (*JournalRepository)(nil)
	_ ports.SeqReporter = (*JournalRepository)(nil)
)

// JournalRepository implements ports.Journal on a MongoDB collection keyed by sequence.
type JournalRepository struct {
	col *mongo.Collection
}

func NewJournalRepository(db *mongo.Database) *JournalRepository {
	return &JournalRepository{col: db.Collection(collectionJournal)}
}

// journalDoc keeps the commit time twice: At is a BSON date (millisecond
// precision) for the audit index, AtNanos is what replay reads.
type journalDoc struct {
	Seq     uint64    `bson:"_id"`
	Op      string    `bson:"op"`
	Caller  string    `bson:"caller"`
	At      time.Time `bson:"at"`
	AtNanos int64     `bson:"at_ns"`
	Args    string    `bson:"args"`
}

func toJournalDoc(entry domain.JournalEntry) journalDoc {
	at := entry.At.UTC()
	return journalDoc{
		Seq:     entry.Seq,
		Op:      string(entry.Op),
		Caller:  string(entry.Caller),
		At:      at,
		AtNanos: at.UnixNano(),
		Args:    string(entry.Args),
	}
}

func (d journalDoc) entry() domain.JournalEntry {
	at := d.At.UTC()
	if d.AtNanos != 0 {
		at = time.Unix(0, d.AtNanos).UTC()
	}
	return domain.JournalEntry{
		Seq:    d.Seq,
		Op:     domain.Op(d.Op),
		Caller: domain.AccountID(d.Caller),
		At:     at,
		Args:   []byte(d.Args),
	}
}

// Append inserts one entry. The sequence doubles as the document ID, so a
// second writer racing on the same sequence fails instead of forking history.
func (r *JournalRepository) Append(ctx context.Context, entry domain.JournalEntry) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.InsertOne(ctx, toJournalDoc(entry)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %d", ErrSequenceTaken, entry.Seq)
		}
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Load streams entries in sequence order.
func (r *JournalRepository) Load(ctx context.Context, fn func(domain.JournalEntry) error) error {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return fmt.Errorf("find journal entries: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc journalDoc
		if err := cur.Decode(&doc); err != nil {
			return fmt.Errorf("decode journal entry: %w", err)
		}
		if err := fn(doc.entry()); err != nil {
			return err
		}
	}
	return cur.Err()
}

// LastSeq returns the highest stored sequence, 0 when empty.
func (r *JournalRepository) LastSeq(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc journalDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}).SetProjection(bson.M{"_id": 1})
	err := r.col.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find last journal entry: %w", err)
	}
	return doc.Seq, nil
}

// EnsureIndexes creates the secondary indexes used for audit queries.
func (r *JournalRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "caller", Value: 1}}},
		{Keys: bson.D{{Key: "op", Value: 1}, {Key: "at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
