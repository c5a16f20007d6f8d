// Package mongo implements the store on MongoDB via Grove ORM. It is
// the backend of choice when rich selector queries are needed: selector
// documents are translated to Mongo filters and evaluated server-side.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/gymplannet/planledger/store"
)

// Collection name constants.
const (
	colState   = "planledger_state"
	colHistory = "planledger_history"
)

// compile-time interface checks
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Begin opens a transaction tagged with txID. Writes are staged in
// memory and applied to the collections at Commit.
func (s *Store) Begin(_ context.Context, txID string) (store.Tx, error) {
	return &tx{
		s:       s,
		txID:    txID,
		pending: make(map[string]write),
	}, nil
}

// SupportsRichQuery reports selector support; Mongo evaluates selectors
// natively.
func (s *Store) SupportsRichQuery() bool { return true }

// Migrate creates indexes for the state and history collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("planledger/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Transaction ====================

type write struct {
	value   []byte
	deleted bool
}

type tx struct {
	s       *Store
	txID    string
	pending map[string]write
	order   []string
	done    bool
}

func (t *tx) Get(ctx context.Context, key string) ([]byte, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}
	if w, ok := t.pending[key]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}

	var m stateModel
	err := t.s.mdb.NewFind(&m).
		Filter(bson.M{"_id": key}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("planledger/mongo: get %s: %w", key, err)
	}
	return m.Value, nil
}

func (t *tx) Put(_ context.Context, key string, value []byte) error {
	if t.done {
		return store.ErrTxFinished
	}
	if _, ok := t.pending[key]; !ok {
		t.order = append(t.order, key)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t.pending[key] = write{value: cp}
	return nil
}

func (t *tx) Delete(_ context.Context, key string) error {
	if t.done {
		return store.ErrTxFinished
	}
	if _, ok := t.pending[key]; !ok {
		t.order = append(t.order, key)
	}
	t.pending[key] = write{deleted: true}
	return nil
}

// Scan returns committed records whose key starts with prefix, in key
// order. Writes staged in this transaction are not visible; scans and
// selector queries read committed state only.
func (t *tx) Scan(ctx context.Context, prefix string) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	return t.find(ctx, filter)
}

// Query translates a selector document to a Mongo filter over the
// decoded document fields and evaluates it server-side.
func (t *tx) Query(ctx context.Context, selector []byte) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	var q struct {
		Selector map[string]any `json:"selector"`
	}
	if err := json.Unmarshal(selector, &q); err != nil {
		return nil, fmt.Errorf("planledger/mongo: parse selector: %w", err)
	}
	if q.Selector == nil {
		return nil, fmt.Errorf("planledger/mongo: selector document missing selector field")
	}

	filter := bson.M{}
	for field, cond := range q.Selector {
		filter["doc."+field] = cond
	}
	return t.find(ctx, filter)
}

func (t *tx) find(ctx context.Context, filter bson.M) (store.Iterator, error) {
	var models []stateModel
	err := t.s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("planledger/mongo: find: %w", err)
	}

	records := make([]store.Record, len(models))
	for i := range models {
		records[i] = store.Record{Key: models[i].Key, Value: models[i].Value}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return &sliceIterator{records: records}, nil
}

func (t *tx) History(ctx context.Context, key string) (store.HistoryIterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	var models []historyModel
	err := t.s.mdb.NewFind(&models).
		Filter(bson.M{"key": key}).
		Sort(bson.D{{Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("planledger/mongo: history %s: %w", key, err)
	}

	versions := make([]store.Version, len(models))
	for i := range models {
		versions[i] = store.Version{
			TxID:      models[i].TxID,
			Timestamp: models[i].Timestamp,
			IsDelete:  models[i].IsDelete,
			Value:     models[i].Value,
		}
	}
	return &historyIterator{versions: versions}, nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return store.ErrTxFinished
	}
	t.done = true

	at := now()
	for seq, key := range t.order {
		w := t.pending[key]

		if w.deleted {
			_, err := t.s.mdb.NewDelete((*stateModel)(nil)).
				Filter(bson.M{"_id": key}).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("planledger/mongo: commit delete %s: %w", key, err)
			}
		} else {
			m, err := toStateModel(key, w.value, at)
			if err != nil {
				return err
			}
			_, err = t.s.mdb.NewUpdate(m).
				Filter(bson.M{"_id": key}).
				SetUpdate(bson.M{"$set": bson.M{
					"_id":        m.Key,
					"doc":        m.Doc,
					"value":      m.Value,
					"updated_at": m.UpdatedAt,
				}}).
				Upsert().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("planledger/mongo: commit put %s: %w", key, err)
			}
		}

		h := toHistoryModel(key, t.txID, seq, w.deleted, w.value, at)
		if _, err := t.s.mdb.NewInsert(h).Exec(ctx); err != nil {
			return fmt.Errorf("planledger/mongo: commit history %s: %w", key, err)
		}
	}
	return nil
}

func (t *tx) Discard() {
	t.done = true
	t.pending = nil
	t.order = nil
}

// ==================== Iterators ====================

type sliceIterator struct {
	records []store.Record
	pos     int
	current store.Record
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.records) {
		return false
	}
	it.current = it.records[it.pos]
	it.pos++
	return true
}

func (it *sliceIterator) Record() store.Record { return it.current }
func (it *sliceIterator) Err() error           { return nil }
func (it *sliceIterator) Close() error         { it.records = nil; return nil }

type historyIterator struct {
	versions []store.Version
	pos      int
	current  store.Version
}

func (it *historyIterator) Next() bool {
	if it.pos >= len(it.versions) {
		return false
	}
	it.current = it.versions[it.pos]
	it.pos++
	return true
}

func (it *historyIterator) Version() store.Version { return it.current }
func (it *historyIterator) Err() error             { return nil }
func (it *historyIterator) Close() error           { it.versions = nil; return nil }

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for both collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colState: {
			{Keys: bson.D{{Key: "doc.class", Value: 1}, {Key: "doc.currentState", Value: 1}}},
			{Keys: bson.D{{Key: "doc.class", Value: 1}, {Key: "doc.owner", Value: 1}}},
		},
		colHistory: {
			{Keys: bson.D{{Key: "key", Value: 1}, {Key: "timestamp", Value: 1}, {Key: "seq", Value: 1}}},
			{
				Keys:    bson.D{{Key: "tx_id", Value: 1}},
				Options: options.Index().SetSparse(true),
			},
		},
	}
}
