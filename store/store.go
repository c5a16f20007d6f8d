// Package store defines the world-state storage boundary planledger runs
// against. Backends provide a durable key-value store with per-key version
// history and, optionally, rich selector queries; transaction ordering,
// consensus, and cross-transaction isolation belong to the surrounding
// ledger platform and are out of scope here.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all backends.
var (
	ErrNotFound             = errors.New("store: record not found")
	ErrAlreadyExists        = errors.New("store: record already exists")
	ErrRichQueryUnsupported = errors.New("store: rich queries not supported by this backend")
	ErrTxFinished           = errors.New("store: transaction already committed or discarded")
	ErrClosed               = errors.New("store: store is closed")
)

// Record is one key/value pair produced by scans and rich queries.
type Record struct {
	Key   string
	Value []byte
}

// Version is one committed version of a key, in commit order.
type Version struct {
	TxID      string
	Timestamp time.Time
	IsDelete  bool
	Value     []byte
}

// Iterator walks scan or rich-query results. Close must be called on
// every exit path; iterators are a bounded resource.
type Iterator interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// HistoryIterator walks the committed versions of a single key.
type HistoryIterator interface {
	Next() bool
	Version() Version
	Err() error
	Close() error
}

// Tx is a single-transaction view of the world state. Reads observe the
// transaction's own prior writes; nothing is durable until Commit. A Tx
// is used by exactly one operation and is never shared across goroutines.
type Tx interface {
	// Get returns the current value at key, or (nil, nil) when the key
	// is absent. Pending writes in this transaction shadow committed state.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stages a write at key. The value must be a full snapshot of the
	// record, not a delta.
	Put(ctx context.Context, key string, value []byte) error

	// Delete stages a tombstone at key.
	Delete(ctx context.Context, key string) error

	// Scan returns all records whose key starts with prefix, in store
	// iteration order.
	Scan(ctx context.Context, prefix string) (Iterator, error)

	// Query executes a selector document (JSON, {"selector": {...}})
	// verbatim against the store. Backends without selector support
	// return ErrRichQueryUnsupported.
	Query(ctx context.Context, selector []byte) (Iterator, error)

	// History returns every committed version of key in commit order.
	// Versions staged in this transaction are not included.
	History(ctx context.Context, key string) (HistoryIterator, error)

	// Commit durably applies all staged writes and records one history
	// version per written key, tagged with this transaction's id and a
	// commit timestamp.
	Commit(ctx context.Context) error

	// Discard drops all staged writes. Safe to call after Commit.
	Discard()
}

// Store is the backend factory for transactions.
type Store interface {
	// Begin opens a transaction tagged with txID.
	Begin(ctx context.Context, txID string) (Tx, error)

	// SupportsRichQuery reports whether Tx.Query is available.
	SupportsRichQuery() bool

	// Migrate prepares backend schema or indexes.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
