package database

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"flyhard/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "datalog.db"), nil)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	store.retryDelay = 10 * time.Millisecond
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_RecordAndReadBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &types.PayloadRecord{
		ClientID:    7,
		PairID:      "pair-abc",
		SequenceKey: 42,
		Payload:     []byte("game-state"),
	}
	if err := store.RecordPayload(ctx, rec); err != nil {
		t.Fatalf("RecordPayload failed: %v", err)
	}
	if rec.ID == "" {
		t.Error("store did not assign a record id")
	}
	if rec.LoggedAt.IsZero() {
		t.Error("store did not assign a timestamp")
	}

	records, err := store.RecentPayloads(ctx, 10)
	if err != nil {
		t.Fatalf("RecentPayloads failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	got := records[0]
	if got.ClientID != 7 || got.PairID != "pair-abc" || got.SequenceKey != 42 {
		t.Errorf("record = %+v, want client 7 / pair-abc / key 42", got)
	}
	if !bytes.Equal(got.Payload, []byte("game-state")) {
		t.Errorf("payload = %q, want %q", got.Payload, "game-state")
	}
}

func TestStore_RecentPayloadsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := &types.PayloadRecord{ClientID: int64(i), SequenceKey: int64(i), Payload: []byte{byte(i)}}
		if err := store.RecordPayload(ctx, rec); err != nil {
			t.Fatalf("RecordPayload %d failed: %v", i, err)
		}
	}

	records, err := store.RecentPayloads(ctx, 3)
	if err != nil {
		t.Fatalf("RecentPayloads failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
}

func TestStore_ClosedStoreRejectsWrites(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := store.RecordPayload(context.Background(), &types.PayloadRecord{ClientID: 1})
	if err == nil {
		t.Fatal("write to a closed store succeeded")
	}

	// Close is idempotent.
	if err := store.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
