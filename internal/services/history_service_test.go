package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"grammarbuddy/internal/kvstore"
	"grammarbuddy/internal/models"
)

// fakeStore is an in-memory kvstore.Store with failure injection and call
// recording.
type fakeStore struct {
	data      map[string]string
	getErr    error
	getErrFor map[string]error
	setErr    error
	getKeys   []string
	setKeys   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	f.getKeys = append(f.getKeys, key)
	if f.getErr != nil {
		return "", false, f.getErr
	}
	if err := f.getErrFor[key]; err != nil {
		return "", false, err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.setKeys = append(f.setKeys, key)
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Name() string               { return "fake" }
func (f *fakeStore) Close() error               { return nil }

func entryList(dutch ...string) []models.HistoryEntry {
	entries := make([]models.HistoryEntry, len(dutch))
	for i, d := range dutch {
		entries[i] = models.HistoryEntry{Dutch: d, English: "x", Timestamp: int64(i)}
	}
	return entries
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(raw)
}

func TestGetReturnsEmptyOnStoreError(t *testing.T) {
	store := newFakeStore()
	store.getErr = fmt.Errorf("%w: connection refused", kvstore.ErrUnavailable)
	svc := NewHistoryService(store, "matt")

	got := svc.Get(context.Background(), "matt")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty list on store error, got %v", got)
	}
}

func TestGetReturnsEmptyOnMalformedValue(t *testing.T) {
	store := newFakeStore()
	store.data["dgb:history:matt"] = "{not json"
	svc := NewHistoryService(store, "matt")

	got := svc.Get(context.Background(), "matt")
	if len(got) != 0 {
		t.Errorf("expected empty list for malformed value, got %v", got)
	}
}

func TestGetUsesNamespacedKey(t *testing.T) {
	store := newFakeStore()
	store.data["dgb:history:matt"] = mustJSON(t, entryList("hallo"))
	store.data["dgb:history:tuz"] = mustJSON(t, entryList("dag", "hoi"))
	svc := NewHistoryService(store, "matt")

	if got := svc.Get(context.Background(), "matt"); len(got) != 1 || got[0].Dutch != "hallo" {
		t.Errorf("matt's history wrong: %v", got)
	}
	if got := svc.Get(context.Background(), "tuz"); len(got) != 2 {
		t.Errorf("tuz's history wrong: %v", got)
	}
}

func TestReplaceTruncatesToCap(t *testing.T) {
	store := newFakeStore()
	svc := NewHistoryService(store, "matt")

	oversized := make([]models.HistoryEntry, 60)
	for i := range oversized {
		oversized[i] = models.HistoryEntry{Dutch: fmt.Sprintf("zin %d", i)}
	}

	if err := svc.Replace(context.Background(), "matt", oversized); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	stored := svc.Get(context.Background(), "matt")
	if len(stored) != MaxHistoryEntries {
		t.Fatalf("expected %d entries retained, got %d", MaxHistoryEntries, len(stored))
	}
	// The first 50 in caller order survive; no re-sorting happens.
	if stored[0].Dutch != "zin 0" || stored[49].Dutch != "zin 49" {
		t.Errorf("truncation changed ordering: first=%q last=%q", stored[0].Dutch, stored[49].Dutch)
	}
}

func TestReplaceSurfacesStoreError(t *testing.T) {
	store := newFakeStore()
	store.setErr = fmt.Errorf("%w: timeout", kvstore.ErrUnavailable)
	svc := NewHistoryService(store, "matt")

	if err := svc.Replace(context.Background(), "matt", entryList("hallo")); err == nil {
		t.Error("expected write failure to surface")
	}
}

func TestLastWriterWins(t *testing.T) {
	store := newFakeStore()
	svc := NewHistoryService(store, "matt")
	ctx := context.Background()

	if err := svc.Replace(ctx, "matt", entryList("x")); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := svc.Replace(ctx, "matt", entryList("y")); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	stored := svc.Get(ctx, "matt")
	if len(stored) != 1 || stored[0].Dutch != "y" {
		t.Errorf("expected the later write to win wholesale, got %v", stored)
	}
}

func TestUpsertReplacesByDutchText(t *testing.T) {
	list := []models.HistoryEntry{
		{Dutch: "hallo", English: "hello", Timestamp: 1},
		{Dutch: "dag", English: "bye", Timestamp: 2},
	}

	updated := Upsert(list, models.HistoryEntry{Dutch: "dag", English: "day/bye", Timestamp: 99})

	if len(updated) != 2 {
		t.Fatalf("expected length unchanged on re-save, got %d", len(updated))
	}
	if updated[0].Dutch != "dag" || updated[0].Timestamp != 99 {
		t.Errorf("new entry should be first with new data: %+v", updated[0])
	}
	for _, e := range updated[1:] {
		if e.Dutch == "dag" {
			t.Error("old entry with same Dutch text should have been dropped")
		}
	}
}

func TestUpsertPrependsNewPhrase(t *testing.T) {
	updated := Upsert(entryList("hallo"), models.HistoryEntry{Dutch: "dag"})
	if len(updated) != 2 || updated[0].Dutch != "dag" {
		t.Errorf("new phrase should be prepended: %v", updated)
	}
}

func TestUpsertEnforcesCap(t *testing.T) {
	full := make([]models.HistoryEntry, MaxHistoryEntries)
	for i := range full {
		full[i] = models.HistoryEntry{Dutch: fmt.Sprintf("zin %d", i)}
	}

	updated := Upsert(full, models.HistoryEntry{Dutch: "nieuw"})
	if len(updated) != MaxHistoryEntries {
		t.Fatalf("expected cap %d, got %d", MaxHistoryEntries, len(updated))
	}
	if updated[0].Dutch != "nieuw" {
		t.Error("newest entry should survive the cap")
	}
}

func TestClearWritesEmptyList(t *testing.T) {
	store := newFakeStore()
	svc := NewHistoryService(store, "matt")
	ctx := context.Background()

	if err := svc.Replace(ctx, "matt", entryList("hallo")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(ctx, "matt"); err != nil {
		t.Fatal(err)
	}

	if raw := store.data["dgb:history:matt"]; raw != "[]" {
		t.Errorf("clear should store an empty list, got %q", raw)
	}
}

func TestMigration(t *testing.T) {
	ctx := context.Background()

	t.Run("copies legacy history into empty destination", func(t *testing.T) {
		store := newFakeStore()
		store.data["dgb:history"] = mustJSON(t, entryList("hallo"))
		svc := NewHistoryService(store, "matt")

		result, err := svc.MigrateLegacy(ctx, "matt")
		if err != nil {
			t.Fatalf("migration failed: %v", err)
		}
		if !result.Migrated || result.Count != 1 {
			t.Errorf("expected migrated=true count=1, got %+v", result)
		}

		dest := svc.Get(ctx, "matt")
		if len(dest) != 1 || dest[0].Dutch != "hallo" {
			t.Errorf("destination should hold the legacy list: %v", dest)
		}
	})

	t.Run("never overwrites a non-empty destination", func(t *testing.T) {
		store := newFakeStore()
		store.data["dgb:history"] = mustJSON(t, entryList("hallo"))
		store.data["dgb:history:matt"] = mustJSON(t, entryList("dag"))
		svc := NewHistoryService(store, "matt")

		result, err := svc.MigrateLegacy(ctx, "matt")
		if err != nil {
			t.Fatalf("migration failed: %v", err)
		}
		if result.Migrated {
			t.Error("migration should be a no-op when destination has entries")
		}
		if result.Reason != "matt already has history" {
			t.Errorf("unexpected reason: %q", result.Reason)
		}

		dest := svc.Get(ctx, "matt")
		if len(dest) != 1 || dest[0].Dutch != "dag" {
			t.Errorf("destination must be untouched: %v", dest)
		}
	})

	t.Run("no-op when legacy bucket absent or empty", func(t *testing.T) {
		for name, raw := range map[string]string{"absent": "", "empty": "[]", "malformed": "{oops"} {
			t.Run(name, func(t *testing.T) {
				store := newFakeStore()
				if raw != "" {
					store.data["dgb:history"] = raw
				}
				svc := NewHistoryService(store, "matt")

				result, err := svc.MigrateLegacy(ctx, "matt")
				if err != nil {
					t.Fatalf("migration failed: %v", err)
				}
				if result.Migrated || result.Reason != "no old data to migrate" {
					t.Errorf("expected no-op, got %+v", result)
				}
			})
		}
	})

	t.Run("only the legacy account triggers it", func(t *testing.T) {
		store := newFakeStore()
		store.data["dgb:history"] = mustJSON(t, entryList("hallo"))
		svc := NewHistoryService(store, "matt")

		result, err := svc.MigrateLegacy(ctx, "tuz")
		if err != nil {
			t.Fatalf("migration failed: %v", err)
		}
		if result.Migrated || result.Reason != "not applicable" {
			t.Errorf("expected not-applicable no-op, got %+v", result)
		}
		if len(store.getKeys) != 0 {
			t.Error("store should not be touched for other identities")
		}
	})

	t.Run("failed destination read aborts instead of overwriting", func(t *testing.T) {
		store := newFakeStore()
		store.data["dgb:history"] = mustJSON(t, entryList("legacy"))
		store.data["dgb:history:matt"] = mustJSON(t, entryList("precious"))
		store.getErrFor = map[string]error{
			"dgb:history:matt": fmt.Errorf("%w: timeout", kvstore.ErrUnavailable),
		}
		svc := NewHistoryService(store, "matt")

		if _, err := svc.MigrateLegacy(ctx, "matt"); err == nil {
			t.Fatal("an unreadable destination must fail the migration")
		}
		if len(store.setKeys) != 0 {
			t.Error("nothing may be written when the destination state is unknown")
		}
		if store.data["dgb:history:matt"] != mustJSON(t, entryList("precious")) {
			t.Error("existing history must survive a degraded destination read")
		}
	})

	t.Run("runs idempotently across repeated logins", func(t *testing.T) {
		store := newFakeStore()
		store.data["dgb:history"] = mustJSON(t, entryList("hallo", "dag"))
		svc := NewHistoryService(store, "matt")

		first, err := svc.MigrateLegacy(ctx, "matt")
		if err != nil || !first.Migrated || first.Count != 2 {
			t.Fatalf("first run: %+v, %v", first, err)
		}
		second, err := svc.MigrateLegacy(ctx, "matt")
		if err != nil || second.Migrated {
			t.Fatalf("second run should no-op: %+v, %v", second, err)
		}

		dest := svc.Get(ctx, "matt")
		if len(dest) != 2 {
			t.Errorf("repeated runs must not duplicate entries: %v", dest)
		}
	})
}
