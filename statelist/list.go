// Package statelist provides a typed view over one composite-key namespace
// of the world state. Each asset package owns one namespace; the list
// handles key construction and JSON serialization so asset code never
// touches raw keys or bytes.
package statelist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gymplannet/planledger/statekey"
	"github.com/gymplannet/planledger/store"
)

// keyed is implemented by every asset: the ordered attributes that make
// up its composite key within the namespace.
type keyed interface {
	SplitKey() []string
}

// List is a typed state list over a single namespace. The second type
// parameter ties the asset pointer type to its keyed implementation so
// callers write statelist.New[plan.Plan](tx, plan.Namespace).
type List[T any, PT interface {
	keyed
	*T
}] struct {
	tx        store.Tx
	namespace string
}

// New returns a list bound to tx for the given namespace.
func New[T any, PT interface {
	keyed
	*T
}](tx store.Tx, namespace string) *List[T, PT] {
	return &List[T, PT]{tx: tx, namespace: namespace}
}

// Add stores a new asset. It fails with store.ErrAlreadyExists when the
// composite key is already occupied, including by a write staged earlier
// in the same transaction.
func (l *List[T, PT]) Add(ctx context.Context, asset PT) error {
	key, err := l.keyOf(asset)
	if err != nil {
		return err
	}
	existing, err := l.tx.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("statelist: get %s: %w", key, err)
	}
	if existing != nil {
		return fmt.Errorf("statelist: add %s: %w", key, store.ErrAlreadyExists)
	}
	return l.put(ctx, key, asset)
}

// Get loads the asset at the given composite-key attributes. It fails
// with store.ErrNotFound when the key is absent.
func (l *List[T, PT]) Get(ctx context.Context, attrs ...string) (PT, error) {
	key, err := statekey.Make(l.namespace, attrs...)
	if err != nil {
		return nil, err
	}
	raw, err := l.tx.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("statelist: get %s: %w", key, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("statelist: get %s: %w", key, store.ErrNotFound)
	}
	asset := PT(new(T))
	if err := json.Unmarshal(raw, asset); err != nil {
		return nil, fmt.Errorf("statelist: decode %s: %w", key, err)
	}
	return asset, nil
}

// Update overwrites an existing asset with a full snapshot. It fails
// with store.ErrNotFound when the key is absent.
func (l *List[T, PT]) Update(ctx context.Context, asset PT) error {
	key, err := l.keyOf(asset)
	if err != nil {
		return err
	}
	existing, err := l.tx.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("statelist: get %s: %w", key, err)
	}
	if existing == nil {
		return fmt.Errorf("statelist: update %s: %w", key, store.ErrNotFound)
	}
	return l.put(ctx, key, asset)
}

func (l *List[T, PT]) keyOf(asset PT) (string, error) {
	return statekey.Make(l.namespace, asset.SplitKey()...)
}

func (l *List[T, PT]) put(ctx context.Context, key string, asset PT) error {
	raw, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("statelist: encode %s: %w", key, err)
	}
	if err := l.tx.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("statelist: put %s: %w", key, err)
	}
	return nil
}
