// Package memory provides an in-memory store backend. It supports the
// full surface including rich selector queries and per-key history, which
// makes it the reference backend for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gymplannet/planledger/store"
)

// compile-time interface checks
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

type Store struct {
	mu      sync.RWMutex
	state   map[string][]byte
	history map[string][]store.Version
	closed  bool
}

func New() *Store {
	return &Store{
		state:   make(map[string][]byte),
		history: make(map[string][]store.Version),
	}
}

func (s *Store) Begin(_ context.Context, txID string) (store.Tx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed
	}
	return &tx{
		s:       s,
		txID:    txID,
		pending: make(map[string]write),
	}, nil
}

func (s *Store) SupportsRichQuery() bool { return true }

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

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

func (t *tx) Get(_ context.Context, key string) ([]byte, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}
	if w, ok := t.pending[key]; ok {
		if w.deleted {
			return nil, nil
		}
		return w.value, nil
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	v, ok := t.s.state[key]
	if !ok {
		return nil, nil
	}
	return v, nil
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

func (t *tx) Scan(_ context.Context, prefix string) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	merged := t.snapshot()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	records := make([]store.Record, len(keys))
	for i, k := range keys {
		records[i] = store.Record{Key: k, Value: merged[k]}
	}
	return &sliceIterator{records: records}, nil
}

func (t *tx) Query(_ context.Context, selector []byte) (store.Iterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	sel, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	merged := t.snapshot()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var records []store.Record
	for _, k := range keys {
		ok, err := matchSelector(merged[k], sel)
		if err != nil {
			return nil, fmt.Errorf("memory: match %s: %w", k, err)
		}
		if ok {
			records = append(records, store.Record{Key: k, Value: merged[k]})
		}
	}
	return &sliceIterator{records: records}, nil
}

func (t *tx) History(_ context.Context, key string) (store.HistoryIterator, error) {
	if t.done {
		return nil, store.ErrTxFinished
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	versions := make([]store.Version, len(t.s.history[key]))
	copy(versions, t.s.history[key])
	return &historyIterator{versions: versions}, nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return store.ErrTxFinished
	}
	t.done = true

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if t.s.closed {
		return store.ErrClosed
	}

	now := time.Now().UTC()
	for _, key := range t.order {
		w := t.pending[key]
		if w.deleted {
			delete(t.s.state, key)
		} else {
			t.s.state[key] = w.value
		}
		t.s.history[key] = append(t.s.history[key], store.Version{
			TxID:      t.txID,
			Timestamp: now,
			IsDelete:  w.deleted,
			Value:     w.value,
		})
	}
	return nil
}

func (t *tx) Discard() {
	t.done = true
	t.pending = nil
	t.order = nil
}

// snapshot merges committed state with this transaction's pending writes.
func (t *tx) snapshot() map[string][]byte {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	merged := make(map[string][]byte, len(t.s.state)+len(t.pending))
	for k, v := range t.s.state {
		merged[k] = v
	}
	for k, w := range t.pending {
		if w.deleted {
			delete(merged, k)
		} else {
			merged[k] = w.value
		}
	}
	return merged
}

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
