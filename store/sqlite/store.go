// Package sqlite implements the store on SQLite via Grove ORM. It is a
// single-file backend suited to embedded deployments; selector queries
// are not supported.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/gymplannet/planledger/store"
)

// compile-time interface checks
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

// stateModel is one committed record of the world state.
type stateModel struct {
	grove.BaseModel `grove:"table:planledger_state"`

	Key       string    `grove:"key,pk"`
	Value     []byte    `grove:"value"`
	UpdatedAt time.Time `grove:"updated_at"`
}

// historyModel is one committed version of a key.
type historyModel struct {
	grove.BaseModel `grove:"table:planledger_history"`

	ID        string    `grove:"id,pk"`
	Key       string    `grove:"key"`
	TxID      string    `grove:"tx_id"`
	Timestamp time.Time `grove:"timestamp"`
	Seq       int       `grove:"seq"`
	IsDelete  bool      `grove:"is_delete"`
	Value     []byte    `grove:"value"`
}

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Begin opens a transaction tagged with txID. Writes are staged in
// memory and applied to the tables at Commit.
func (s *Store) Begin(_ context.Context, txID string) (store.Tx, error) {
	return &tx{
		s:       s,
		txID:    txID,
		pending: make(map[string]write),
	}, nil
}

// SupportsRichQuery reports selector support; SQLite has none.
func (s *Store) SupportsRichQuery() bool { return false }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("planledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("planledger/sqlite: migration failed: %w", err)
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

	m := new(stateModel)
	err := t.s.sdb.NewSelect(m).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("planledger/sqlite: get %s: %w", key, err)
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
// order. The prefix match is a half-open key range; keys are textual,
// so bumping the range end with 0xff is exact.
func (t *tx) Scan(ctx context.Context, prefix string) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	var models []stateModel
	err := t.s.sdb.NewSelect(&models).
		Where("key >= ?", prefix).
		Where("key < ?", prefix+"\xff").
		OrderExpr("key ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("planledger/sqlite: scan %s: %w", prefix, err)
	}

	records := make([]store.Record, len(models))
	for i := range models {
		records[i] = store.Record{Key: models[i].Key, Value: models[i].Value}
	}
	return &sliceIterator{records: records}, nil
}

func (t *tx) Query(_ context.Context, _ []byte) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}
	return nil, store.ErrRichQueryUnsupported
}

func (t *tx) History(ctx context.Context, key string) (store.HistoryIterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	var models []historyModel
	err := t.s.sdb.NewSelect(&models).
		Where("key = ?", key).
		OrderExpr("timestamp ASC, seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("planledger/sqlite: history %s: %w", key, err)
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
			_, err := t.s.sdb.NewDelete((*stateModel)(nil)).
				Where("key = ?", key).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("planledger/sqlite: commit delete %s: %w", key, err)
			}
		} else {
			m := &stateModel{Key: key, Value: w.value, UpdatedAt: at}
			_, err := t.s.sdb.NewInsert(m).
				OnConflict("(key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("planledger/sqlite: commit put %s: %w", key, err)
			}
		}

		h := &historyModel{
			ID:        fmt.Sprintf("%s#%s#%d", key, t.txID, seq),
			Key:       key,
			TxID:      t.txID,
			Timestamp: at,
			Seq:       seq,
			IsDelete:  w.deleted,
			Value:     w.value,
		}
		if _, err := t.s.sdb.NewInsert(h).Exec(ctx); err != nil {
			return fmt.Errorf("planledger/sqlite: commit history %s: %w", key, err)
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

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
