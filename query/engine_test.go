package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gymplannet/planledger/plan"
	"github.com/gymplannet/planledger/statekey"
	"github.com/gymplannet/planledger/store"
	"github.com/gymplannet/planledger/store/memory"
)

func seedPlan(t *testing.T, tx store.Tx, p *plan.Plan) {
	t.Helper()
	key, err := statekey.Make(plan.Namespace, p.SplitKey()...)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Put(context.Background(), key, raw); err != nil {
		t.Fatal(err)
	}
}

func testPlan(owner, number string, state, totalAwards int) *plan.Plan {
	p := plan.New(owner, number, "2026-01-01", "2026-02-01", "2026-12-01",
		0, totalAwards, 10, 20, 1, 1)
	p.CurrentState = state
	return p
}

// seededEngine returns an engine over a transaction preloaded with a
// small fleet of plans in assorted states.
func seededEngine(t *testing.T) *Engine {
	t.Helper()
	tx, err := memory.New().Begin(context.Background(), "tx-query")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(tx.Discard)

	seedPlan(t, tx, testPlan("AliceGym", "P001", plan.StateActive, 5000000))
	seedPlan(t, tx, testPlan("AliceGym", "P002", plan.StateIssued, 1000000))
	seedPlan(t, tx, testPlan("AliceGym2", "P001", plan.StateActive, 2000000))
	seedPlan(t, tx, testPlan("BobGym", "P001", plan.StateExpired, 8000000))

	return New(tx, plan.Namespace)
}

func keysOf(results []Result) []string {
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Key
	}
	return keys
}

func TestPartialKey(t *testing.T) {
	e := seededEngine(t)
	ctx := context.Background()

	t.Run("no attributes rejected", func(t *testing.T) {
		if _, err := e.PartialKey(ctx); !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("error = %v, want ErrInvalidArguments", err)
		}
	})

	t.Run("by owner", func(t *testing.T) {
		results, err := e.PartialKey(ctx, "AliceGym")
		if err != nil {
			t.Fatal(err)
		}
		// Matches per key component: AliceGym2 keys are excluded even
		// though AliceGym is a string prefix of AliceGym2.
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2: %v", len(results), keysOf(results))
		}
		want0, _ := statekey.Make(plan.Namespace, "AliceGym", "P001")
		if results[0].Key != want0 {
			t.Errorf("results[0].Key = %q, want %q", results[0].Key, want0)
		}
	})

	t.Run("no match", func(t *testing.T) {
		results, err := e.PartialKey(ctx, "NoSuchGym")
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 0 {
			t.Errorf("got %d results, want 0", len(results))
		}
	})

	t.Run("invalid attribute", func(t *testing.T) {
		if _, err := e.PartialKey(ctx, "Ali:ce"); !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("error = %v, want ErrInvalidArguments", err)
		}
	})
}

func TestByOwner(t *testing.T) {
	e := seededEngine(t)
	ctx := context.Background()

	results, err := e.ByOwner(ctx, "AliceGym")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(results), keysOf(results))
	}
	for _, r := range results {
		var doc struct {
			Owner string `json:"owner"`
		}
		if err := json.Unmarshal(r.Record, &doc); err != nil {
			t.Fatal(err)
		}
		if doc.Owner != "AliceGym" {
			t.Errorf("result %s has owner %q", r.Key, doc.Owner)
		}
	}

	if _, err := e.ByOwner(ctx, ""); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("empty owner error = %v, want ErrInvalidArguments", err)
	}
}

func TestAdhoc(t *testing.T) {
	e := seededEngine(t)
	ctx := context.Background()

	results, err := e.Adhoc(ctx, map[string]any{"owner": "BobGym"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	if _, err := e.Adhoc(ctx, nil); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("empty selector error = %v, want ErrInvalidArguments", err)
	}
}

func TestNamed(t *testing.T) {
	e := seededEngine(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		wantCount int
	}{
		{"issued", 1},
		{"subscribing", 0},
		{"active", 2},
		{"expired", 1},
		{"awards", 2}, // totalAwards strictly above the threshold
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := e.Named(ctx, tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != tt.wantCount {
				t.Errorf("got %d results, want %d: %v", len(results), tt.wantCount, keysOf(results))
			}
		})
	}

	if _, err := e.Named(ctx, "vip"); !errors.Is(err, ErrUnknownNamedQuery) {
		t.Errorf("unknown name error = %v, want ErrUnknownNamedQuery", err)
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	key, err := statekey.Make(plan.Namespace, "AliceGym", "P001")
	if err != nil {
		t.Fatal(err)
	}

	// Three generations: issued, active, deleted. Plus one version with
	// a state code the decoder does not recognize.
	writes := []struct {
		txID  string
		state int
		del   bool
	}{
		{"tx1", plan.StateIssued, false},
		{"tx2", plan.StateActive, false},
		{"tx3", 9, false},
		{"tx4", 0, true},
	}
	for _, w := range writes {
		tx, err := s.Begin(ctx, w.txID)
		if err != nil {
			t.Fatal(err)
		}
		if w.del {
			if err := tx.Delete(ctx, key); err != nil {
				t.Fatal(err)
			}
		} else {
			seedPlan(t, tx, testPlan("AliceGym", "P001", w.state, 0))
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatal(err)
		}
	}

	view, err := s.Begin(ctx, "tx-view")
	if err != nil {
		t.Fatal(err)
	}
	defer view.Discard()

	entries, err := New(view, plan.Namespace).History(ctx, plan.StateLabel, "AliceGym", "P001")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	wantStates := []string{"ISSUED", "ACTIVE", "UNKNOWN", "DELETED"}
	for i, want := range wantStates {
		if entries[i].State != want {
			t.Errorf("entries[%d].State = %q, want %q", i, entries[i].State, want)
		}
	}
	if entries[0].TxID != "tx1" {
		t.Errorf("entries[0].TxID = %q", entries[0].TxID)
	}
	if entries[3].Record != nil {
		t.Error("delete entry carries a record")
	}
	if !entries[3].IsDelete {
		t.Error("entries[3].IsDelete = false")
	}
	if len(entries[0].Timestamp) != len("2006-01-02T15:04:05.000Z") {
		t.Errorf("timestamp %q not in canonical format", entries[0].Timestamp)
	}
}

func TestHistoryAbsentKey(t *testing.T) {
	ctx := context.Background()
	tx, err := memory.New().Begin(ctx, "tx1")
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Discard()

	entries, err := New(tx, plan.Namespace).History(ctx, plan.StateLabel, "nobody", "P000")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}
