package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/gymplannet/planledger/store"
)

func begin(t *testing.T, s *Store, txID string) store.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background(), txID)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	return tx
}

func commit(t *testing.T, tx store.Tx) {
	t.Helper()
	if err := tx.Commit(context.Background()); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func TestGetReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx := begin(t, s, "tx1")
	defer tx.Discard()

	if err := tx.Put(ctx, "k1", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}

	got, err := tx.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("Get() = %s, want staged write", got)
	}
}

func TestGetAbsentKey(t *testing.T) {
	ctx := context.Background()
	tx := begin(t, New(), "tx1")
	defer tx.Discard()

	got, err := tx.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Errorf("Get() = %s, want nil for absent key", got)
	}
}

func TestDiscardDropsWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	if err := tx.Put(ctx, "k1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	tx.Discard()

	tx2 := begin(t, s, "tx2")
	defer tx2.Discard()
	got, err := tx2.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("discarded write visible: %s", got)
	}
}

func TestCommitMakesWritesVisible(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	if err := tx.Put(ctx, "k1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	commit(t, tx)

	tx2 := begin(t, s, "tx2")
	defer tx2.Discard()
	got, err := tx2.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v1" {
		t.Errorf("Get() = %s, want v1", got)
	}
}

func TestDeleteShadowsCommitted(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	if err := tx.Put(ctx, "k1", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	commit(t, tx)

	tx2 := begin(t, s, "tx2")
	defer tx2.Discard()
	if err := tx2.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	got, err := tx2.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("Get() after staged delete = %s, want nil", got)
	}
}

func TestFinishedTxRejectsOperations(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	commit(t, tx)

	if _, err := tx.Get(ctx, "k"); !errors.Is(err, store.ErrTxFinished) {
		t.Errorf("Get() error = %v, want ErrTxFinished", err)
	}
	if err := tx.Put(ctx, "k", nil); !errors.Is(err, store.ErrTxFinished) {
		t.Errorf("Put() error = %v, want ErrTxFinished", err)
	}
	if err := tx.Commit(ctx); !errors.Is(err, store.ErrTxFinished) {
		t.Errorf("second Commit() error = %v, want ErrTxFinished", err)
	}
}

func TestClosedStoreRejectsBegin(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Begin(context.Background(), "tx1"); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Begin() error = %v, want ErrClosed", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, store.ErrClosed) {
		t.Errorf("Ping() error = %v, want ErrClosed", err)
	}
}

func TestScanPrefixOrderAndIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	for _, kv := range []struct{ k, v string }{
		{"ns:Alice:P002", "2"},
		{"ns:Alice:P001", "1"},
		{"ns:Bob:P001", "3"},
		{"other:Alice:P001", "4"},
	} {
		if err := tx.Put(ctx, kv.k, []byte(kv.v)); err != nil {
			t.Fatal(err)
		}
	}
	commit(t, tx)

	tx2 := begin(t, s, "tx2")
	defer tx2.Discard()
	it, err := tx2.Scan(ctx, "ns:Alice:")
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, it.Record().Key)
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	want := []string{"ns:Alice:P001", "ns:Alice:P002"}
	if len(keys) != len(want) {
		t.Fatalf("Scan() keys = %v, want %v", keys, want)
	}
	for i := range keys {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestScanSeesPendingWrites(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	defer tx.Discard()
	if err := tx.Put(ctx, "ns:a", []byte("staged")); err != nil {
		t.Fatal(err)
	}

	it, err := tx.Scan(ctx, "ns:")
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	if !it.Next() {
		t.Fatal("Scan() returned no records, want staged write")
	}
	if got := it.Record(); got.Key != "ns:a" || string(got.Value) != "staged" {
		t.Errorf("Record() = %s=%s", got.Key, got.Value)
	}
}

func TestQuerySelectors(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	docs := map[string]string{
		"p1": `{"class":"plan","owner":"Alice","totalAwards":5000000}`,
		"p2": `{"class":"plan","owner":"Bob","totalAwards":1000000}`,
		"s1": `{"class":"sub","owner":"Alice"}`,
	}
	for k, v := range docs {
		if err := tx.Put(ctx, k, []byte(v)); err != nil {
			t.Fatal(err)
		}
	}
	commit(t, tx)

	tests := []struct {
		name     string
		selector string
		wantKeys []string
	}{
		{"equality", `{"selector":{"class":"plan","owner":"Alice"}}`, []string{"p1"}},
		{"gt operator", `{"selector":{"totalAwards":{"$gt":4000000}}}`, []string{"p1"}},
		{"lte operator", `{"selector":{"totalAwards":{"$lte":1000000}}}`, []string{"p2"}},
		{"ne operator", `{"selector":{"class":{"$ne":"plan"}}}`, []string{"s1"}},
		{"missing field never matches", `{"selector":{"nope":"x"}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx2 := begin(t, s, "txq")
			defer tx2.Discard()

			it, err := tx2.Query(ctx, []byte(tt.selector))
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			defer it.Close()

			var keys []string
			for it.Next() {
				keys = append(keys, it.Record().Key)
			}
			if len(keys) != len(tt.wantKeys) {
				t.Fatalf("Query() keys = %v, want %v", keys, tt.wantKeys)
			}
			for i := range keys {
				if keys[i] != tt.wantKeys[i] {
					t.Errorf("keys[%d] = %q, want %q", i, keys[i], tt.wantKeys[i])
				}
			}
		})
	}
}

func TestQueryRejectsUnsupportedOperator(t *testing.T) {
	ctx := context.Background()
	tx := begin(t, New(), "tx1")
	defer tx.Discard()

	if _, err := tx.Query(ctx, []byte(`{"selector":{"owner":{"$regex":"^A"}}}`)); err == nil {
		t.Error("Query() with $regex should fail")
	}
	if _, err := tx.Query(ctx, []byte(`{"fields":["a"]}`)); err == nil {
		t.Error("Query() without selector field should fail")
	}
}

func TestHistoryAcrossTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, w := range []struct{ txID, value string }{
		{"tx1", `{"v":1}`},
		{"tx2", `{"v":2}`},
	} {
		tx := begin(t, s, w.txID)
		if err := tx.Put(ctx, "k1", []byte(w.value)); err != nil {
			t.Fatal(err)
		}
		commit(t, tx)
	}

	tx := begin(t, s, "tx3")
	if err := tx.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	commit(t, tx)

	view := begin(t, s, "tx4")
	defer view.Discard()
	it, err := view.History(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	var versions []store.Version
	for it.Next() {
		versions = append(versions, it.Version())
	}
	if len(versions) != 3 {
		t.Fatalf("History() returned %d versions, want 3", len(versions))
	}
	if versions[0].TxID != "tx1" || string(versions[0].Value) != `{"v":1}` {
		t.Errorf("versions[0] = %+v", versions[0])
	}
	if versions[1].TxID != "tx2" || string(versions[1].Value) != `{"v":2}` {
		t.Errorf("versions[1] = %+v", versions[1])
	}
	if !versions[2].IsDelete || versions[2].TxID != "tx3" {
		t.Errorf("versions[2] = %+v, want delete marker", versions[2])
	}
}

func TestDiscardedTxLeavesNoHistory(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx := begin(t, s, "tx1")
	if err := tx.Put(ctx, "k1", []byte("v")); err != nil {
		t.Fatal(err)
	}
	tx.Discard()

	view := begin(t, s, "tx2")
	defer view.Discard()
	it, err := view.History(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()
	if it.Next() {
		t.Error("History() returned versions for a discarded write")
	}
}
