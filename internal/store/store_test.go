package store_test

import (
	"context"
	"testing"

	"tubesync/internal/catalog"
	"tubesync/internal/store"
	"tubesync/internal/testsupport"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return testsupport.Store(t)
}

func TestUpsertAndLoadExclusion(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	if err := st.UpsertExclusion(ctx, "vid-1", catalog.ReasonWatched); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	record, err := st.Exclusion(ctx, "vid-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record")
	}
	if record.Reason != catalog.ReasonWatched {
		t.Fatalf("unexpected reason %s", record.Reason)
	}

	// Upsert again with an extra flag; the record is replaced, not duplicated.
	if err := st.UpsertExclusion(ctx, "vid-1", catalog.ReasonWatched|catalog.ReasonManual); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	all, err := st.Exclusions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record, got %d", len(all))
	}
	if !all[0].Reason.Has(catalog.ReasonManual) {
		t.Fatalf("expected manual flag set, got %s", all[0].Reason)
	}
}

func TestExclusionMissingReturnsNil(t *testing.T) {
	st := newStore(t)

	record, err := st.Exclusion(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil, got %+v", record)
	}
}

func TestDeleteExclusionIsIdempotent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	if err := st.UpsertExclusion(ctx, "vid-2", catalog.ReasonFilterMatch); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := st.DeleteExclusion(ctx, "vid-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteExclusion(ctx, "vid-2"); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	all, err := st.Exclusions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d records", len(all))
	}
}

func TestExclusionsOrderedByVideoID(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	for _, id := range []catalog.VideoID{"c", "a", "b"} {
		if err := st.UpsertExclusion(ctx, id, catalog.ReasonManual); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	all, err := st.Exclusions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []catalog.VideoID{"a", "b", "c"}
	for i, record := range all {
		if record.VideoID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], record.VideoID)
		}
	}
}
