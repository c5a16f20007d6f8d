// Package query implements the read-side of the ledger: partial-key
// scans, owner and ad-hoc selector queries, a small catalogue of named
// queries, and per-key history with state decoding.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/statekey"
	"github.com/gymplannet/planledger/store"
)

// Errors reported by the engine.
var (
	ErrInvalidArguments  = fmt.Errorf("query: invalid arguments")
	ErrUnknownNamedQuery = fmt.Errorf("query: unknown named query")
)

// AwardsThreshold is the totalAwards cutoff used by the "awards" named
// query to surface high-value plans.
const AwardsThreshold = 4000000

// Result is one record returned by a query, keyed by its full composite
// key with the stored document passed through verbatim.
type Result struct {
	Key    string          `json:"key"`
	Record json.RawMessage `json:"record"`
}

// HistoryEntry is one committed version of a record. State carries the
// decoded lifecycle label of that version; deletes have no record and
// report the state as DELETED.
type HistoryEntry struct {
	TxID      string          `json:"txId"`
	Timestamp string          `json:"timestamp"`
	IsDelete  bool            `json:"isDelete"`
	State     string          `json:"state"`
	Record    json.RawMessage `json:"record,omitempty"`
}

// Decoder translates a raw currentState code into its label. Each asset
// namespace supplies its own.
type Decoder func(code int) string

// Engine runs queries against one namespace within a transaction view.
type Engine struct {
	tx        store.Tx
	namespace string
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New returns an engine bound to tx for the given namespace.
func New(tx store.Tx, namespace string, opts ...Option) *Engine {
	e := &Engine{
		tx:        tx,
		namespace: namespace,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PartialKey returns every record whose composite key starts with the
// given leading attributes, in key order. At least one attribute is
// required; an unbounded whole-namespace walk is not a partial query.
// Matching is per key component, so an attribute never matches a longer
// attribute it is a string prefix of.
func (e *Engine) PartialKey(ctx context.Context, attrs ...string) ([]Result, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%w: at least one key attribute is required", ErrInvalidArguments)
	}
	prefix, err := statekey.Prefix(e.namespace, attrs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	it, err := e.tx.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("query: scan %s: %w", prefix, err)
	}
	return collect(it)
}

// ByOwner returns every record in the namespace whose owner field equals
// owner. It requires a backend with rich query support.
func (e *Engine) ByOwner(ctx context.Context, owner string) ([]Result, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidArguments)
	}
	return e.selectorQuery(ctx, map[string]any{
		"class": e.namespace,
		"owner": owner,
	})
}

// Adhoc runs a caller-supplied selector verbatim. The selector is the
// inner document; the engine wraps it in the standard query envelope.
// It is not scoped to the engine's namespace, matching the behavior of
// raw rich queries on the underlying store.
func (e *Engine) Adhoc(ctx context.Context, selector map[string]any) ([]Result, error) {
	if len(selector) == 0 {
		return nil, fmt.Errorf("%w: empty selector", ErrInvalidArguments)
	}
	return e.selectorQuery(ctx, selector)
}

// Named runs one of the catalogued queries. Lifecycle names (issued,
// subscribing, active, expired) filter the namespace by state; awards
// returns plans whose totalAwards exceeds AwardsThreshold.
func (e *Engine) Named(ctx context.Context, name string) ([]Result, error) {
	var selector map[string]any
	switch name {
	case "issued":
		selector = e.stateSelector(plan.StateIssued)
	case "subscribing":
		selector = e.stateSelector(plan.StateSubscribing)
	case "active":
		selector = e.stateSelector(plan.StateActive)
	case "expired":
		selector = e.stateSelector(plan.StateExpired)
	case "awards":
		selector = map[string]any{
			"class":       e.namespace,
			"totalAwards": map[string]any{"$gt": AwardsThreshold},
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamedQuery, name)
	}
	e.logger.Debug("running named query", "name", name, "namespace", e.namespace)
	return e.selectorQuery(ctx, selector)
}

// History returns every committed version of the record at the given
// composite-key attributes, oldest first, with states decoded by decode.
func (e *Engine) History(ctx context.Context, decode Decoder, attrs ...string) ([]HistoryEntry, error) {
	key, err := statekey.Make(e.namespace, attrs...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	it, err := e.tx.History(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("query: history %s: %w", key, err)
	}
	defer it.Close()

	var entries []HistoryEntry
	for it.Next() {
		v := it.Version()
		entry := HistoryEntry{
			TxID:      v.TxID,
			Timestamp: v.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
			IsDelete:  v.IsDelete,
		}
		if v.IsDelete {
			entry.State = "DELETED"
		} else {
			entry.State = decodeState(v.Value, decode)
			entry.Record = append(json.RawMessage(nil), v.Value...)
		}
		entries = append(entries, entry)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("query: history %s: %w", key, err)
	}
	return entries, nil
}

func (e *Engine) stateSelector(state int) map[string]any {
	return map[string]any{
		"class":        e.namespace,
		"currentState": state,
	}
}

func (e *Engine) selectorQuery(ctx context.Context, selector map[string]any) ([]Result, error) {
	raw, err := json.Marshal(map[string]any{"selector": selector})
	if err != nil {
		return nil, fmt.Errorf("query: encode selector: %w", err)
	}
	it, err := e.tx.Query(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("query: selector: %w", err)
	}
	return collect(it)
}

func decodeState(value []byte, decode Decoder) string {
	var doc struct {
		CurrentState int `json:"currentState"`
	}
	if err := json.Unmarshal(value, &doc); err != nil {
		return "UNKNOWN"
	}
	return decode(doc.CurrentState)
}

// collect drains an iterator into results, always closing it.
func collect(it store.Iterator) ([]Result, error) {
	defer it.Close()

	var results []Result
	for it.Next() {
		rec := it.Record()
		results = append(results, Result{
			Key:    rec.Key,
			Record: append(json.RawMessage(nil), rec.Value...),
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("query: iterate: %w", err)
	}
	return results, nil
}
