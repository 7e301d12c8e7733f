package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"grammarbuddy/internal/kvstore"
	"grammarbuddy/internal/models"
)

// MaxHistoryEntries caps each user's saved-phrase list. Entries past the
// cap are silently dropped on write.
const MaxHistoryEntries = 50

const (
	// legacyHistoryKey is the shared bucket from the pre-multi-user
	// version. It is only read, and only by the migration.
	legacyHistoryKey = "dgb:history"
	historyKeyPrefix = "dgb:history:"
)

// HistoryService reads and writes per-user saved-phrase lists in the KV
// store. Every mutation is a whole-list overwrite: the backing store has no
// delta API, so concurrent writers are last-writer-wins.
type HistoryService struct {
	store         kvstore.Store
	legacyAccount string
}

// NewHistoryService creates a history service over the given store. The
// legacy account is the one user whose namespace receives the shared
// pre-multi-user history on migration.
func NewHistoryService(store kvstore.Store, legacyAccount string) *HistoryService {
	return &HistoryService{
		store:         store,
		legacyAccount: strings.ToLower(legacyAccount),
	}
}

// Key returns the namespaced store key for an identity.
func (s *HistoryService) Key(identity string) string {
	return historyKeyPrefix + identity
}

// Get loads a user's history. An absent key, an unparseable value, or a
// store failure all yield the empty list: history is a convenience, and
// reads never fail the request.
func (s *HistoryService) Get(ctx context.Context, identity string) []models.HistoryEntry {
	raw, found, err := s.store.Get(ctx, s.Key(identity))
	countStoreOp("get", err)
	if err != nil {
		log.Printf("⚠️ [HISTORY] Load failed for %s: %v", identity, err)
		return []models.HistoryEntry{}
	}
	if !found {
		return []models.HistoryEntry{}
	}

	entries, ok := decodeEntries(raw)
	if !ok {
		log.Printf("⚠️ [HISTORY] Discarding malformed history for %s", identity)
		return []models.HistoryEntry{}
	}
	return entries
}

// Replace overwrites a user's history with entries, truncated to the cap.
// Order is taken as given; the caller owns sorting and dedup. Unlike reads,
// a failed write is reported to the caller.
func (s *HistoryService) Replace(ctx context.Context, identity string, entries []models.HistoryEntry) error {
	entries = Truncate(entries)

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	err = s.store.Set(ctx, s.Key(identity), string(raw))
	countStoreOp("set", err)
	if err != nil {
		return fmt.Errorf("failed to save history for %s: %w", identity, err)
	}
	return nil
}

// Clear resets a user's history to the empty list.
func (s *HistoryService) Clear(ctx context.Context, identity string) error {
	return s.Replace(ctx, identity, []models.HistoryEntry{})
}

// Bookmark loads the user's list, upserts entry, and writes the result
// back. The read-modify-write is not atomic: two concurrent bookmarks race
// and the later write wins, same as the original client-side flow.
func (s *HistoryService) Bookmark(ctx context.Context, identity string, entry models.HistoryEntry) ([]models.HistoryEntry, error) {
	updated := Upsert(s.Get(ctx, identity), entry)
	if err := s.Replace(ctx, identity, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Truncate drops entries beyond the cap, keeping the caller's order.
func Truncate(entries []models.HistoryEntry) []models.HistoryEntry {
	if len(entries) > MaxHistoryEntries {
		return entries[:MaxHistoryEntries]
	}
	return entries
}

// Upsert prepends entry to list, removing any existing entry with the same
// Dutch text first. Uniqueness is by content: re-saving a phrase replaces
// the old chat and timestamp instead of duplicating the phrase.
func Upsert(list []models.HistoryEntry, entry models.HistoryEntry) []models.HistoryEntry {
	merged := make([]models.HistoryEntry, 0, len(list)+1)
	merged = append(merged, entry)
	for _, existing := range list {
		if existing.Dutch != entry.Dutch {
			merged = append(merged, existing)
		}
	}
	return Truncate(merged)
}

// MigrationResult reports what a migration attempt did.
type MigrationResult struct {
	Migrated bool   `json:"migrated"`
	Count    int    `json:"count,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// MigrateLegacy copies the shared legacy history into the legacy account's
// namespaced key, once. It only acts for that account, never overwrites a
// non-empty destination, and is safe to call on every login: after the
// first copy the destination is non-empty, so later calls no-op. There is
// no separate completion marker.
func (s *HistoryService) MigrateLegacy(ctx context.Context, identity string) (*MigrationResult, error) {
	if identity != s.legacyAccount {
		return &MigrationResult{Migrated: false, Reason: "not applicable"}, nil
	}

	raw, found, err := s.store.Get(ctx, legacyHistoryKey)
	countStoreOp("get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy history: %w", err)
	}
	legacy, ok := decodeEntries(raw)
	if !found || !ok || len(legacy) == 0 {
		return &MigrationResult{Migrated: false, Reason: "no old data to migrate"}, nil
	}

	// The destination read must not go through the forgiving Get: a store
	// error there would look like an empty list and the copy below would
	// overwrite whatever the user actually has.
	destRaw, destFound, err := s.store.Get(ctx, s.Key(identity))
	countStoreOp("get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to read current history: %w", err)
	}
	if destFound {
		if existing, ok := decodeEntries(destRaw); ok && len(existing) > 0 {
			return &MigrationResult{
				Migrated: false,
				Reason:   fmt.Sprintf("%s already has history", s.legacyAccount),
			}, nil
		}
	}

	// Copied verbatim, not truncated: the cap applies to new writes, and
	// trimming here would silently lose saved phrases.
	raw2, err := json.Marshal(legacy)
	if err != nil {
		return nil, fmt.Errorf("failed to encode migrated history: %w", err)
	}
	err = s.store.Set(ctx, s.Key(identity), string(raw2))
	countStoreOp("set", err)
	if err != nil {
		return nil, fmt.Errorf("failed to write migrated history: %w", err)
	}

	log.Printf("✅ [HISTORY] Migrated %d legacy entries to %s", len(legacy), identity)
	return &MigrationResult{Migrated: true, Count: len(legacy)}, nil
}

// decodeEntries parses a stored history blob, reporting failure instead of
// propagating it. Malformed stored data is treated as absent.
func decodeEntries(raw string) ([]models.HistoryEntry, bool) {
	if raw == "" {
		return []models.HistoryEntry{}, true
	}
	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	return entries, true
}
