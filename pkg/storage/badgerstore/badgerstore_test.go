package badgerstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/disha-labs/insight/pkg/record"
	"github.com/disha-labs/insight/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndLoadAll_TimestampOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	// Insert out of order; keys sort by timestamp.
	for _, i := range []int{2, 0, 1} {
		rec := record.Record{ID: fmt.Sprintf("rec-%d", i), Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	recs, err := store.LoadAll(ctx, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, r := range recs {
		if r.ID != fmt.Sprintf("rec-%d", i) {
			t.Errorf("record %d out of timestamp order: %s", i, r.ID)
		}
	}
}

func TestAppend_SameTimestampDistinctIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	// The id hash in the key keeps same-timestamp records apart.
	store.Append(ctx, record.Record{ID: "a", Timestamp: ts})
	store.Append(ctx, record.Record{ID: "b", Timestamp: ts})

	recs, err := store.LoadAll(ctx, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 records, got %d", len(recs))
	}
}

func TestLoadAll_DateBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for day := 1; day <= 5; day++ {
		store.Append(ctx, record.Record{
			ID:        fmt.Sprintf("d%d", day),
			Timestamp: time.Date(2025, 6, day, 12, 0, 0, 0, time.UTC),
		})
	}

	recs, err := store.LoadAll(ctx, storage.LoadOptions{
		From: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 6, 4, 23, 59, 59, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("expected 3 records in bounds, got %d", len(recs))
	}
}

func TestRewrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	store.Append(ctx, record.Record{ID: "a", Timestamp: now})
	store.Append(ctx, record.Record{ID: "b", Timestamp: now.Add(time.Hour)})

	if err := store.Rewrite(ctx, []record.Record{{ID: "b", Timestamp: now.Add(time.Hour)}}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	recs, err := store.LoadAll(ctx, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "b" {
		t.Errorf("expected only record b to survive, got %v", recs)
	}
}

// Rewrite must only touch the diff: stale keys deleted, absent records
// written, surviving records left in place rather than dropped and
// re-inserted. A wholesale drop would lose everything if the process
// died before the replacement batch committed.
func TestRewrite_DiffOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	keepA := record.Record{ID: "keep-a", Timestamp: base}
	keepB := record.Record{ID: "keep-b", Timestamp: base.Add(time.Hour)}
	expired := record.Record{ID: "expired", Timestamp: base.Add(2 * time.Hour)}
	for _, r := range []record.Record{keepA, keepB, expired} {
		if err := store.Append(ctx, r); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	added := record.Record{ID: "added", Timestamp: base.Add(3 * time.Hour)}
	if err := store.Rewrite(ctx, []record.Record{keepA, keepB, added}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	recs, err := store.LoadAll(ctx, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	got := make(map[string]bool, len(recs))
	for _, r := range recs {
		got[r.ID] = true
	}
	if len(recs) != 3 || !got["keep-a"] || !got["keep-b"] || !got["added"] {
		t.Errorf("record set after rewrite = %v, want keep-a, keep-b, added", got)
	}
	if got["expired"] {
		t.Error("stale record survived rewrite")
	}
}

func TestRewrite_IdenticalSetIsNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	recs := []record.Record{
		{ID: "a", Timestamp: base},
		{ID: "b", Timestamp: base.Add(time.Hour)},
	}
	for _, r := range recs {
		store.Append(ctx, r)
	}

	if err := store.Rewrite(ctx, recs); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	loaded, err := store.LoadAll(ctx, storage.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("expected 2 records after identity rewrite, got %d", len(loaded))
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats on empty store failed: %v", err)
	}
	if stats.TotalRecords != 0 {
		t.Errorf("empty store should report 0 records, got %d", stats.TotalRecords)
	}

	store.Append(ctx, record.Record{ID: "a", Timestamp: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)})
	store.Append(ctx, record.Record{ID: "b", Timestamp: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)})

	stats, err = store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRecords != 2 {
		t.Errorf("TotalRecords = %d, want 2", stats.TotalRecords)
	}
	if stats.OldestDate != "2025-06-10" || stats.NewestDate != "2025-06-12" {
		t.Errorf("date range = %s..%s", stats.OldestDate, stats.NewestDate)
	}
}

func TestKeyRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 15, 10, 30, 45, 123456789, time.UTC)
	key := makeKey(record.Record{ID: "abc", Timestamp: ts})

	if len(key) != 16 {
		t.Fatalf("key length = %d, want 16", len(key))
	}
	if got := keyTimestamp(key); !got.Equal(ts) {
		t.Errorf("keyTimestamp = %v, want %v", got, ts)
	}
}
