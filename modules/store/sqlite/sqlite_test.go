package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/flemzord/tgbridge/internal/dedup"
	"github.com/flemzord/tgbridge/internal/delivery"
)

func openTestDB(t *testing.T) (*seenStore, *journalStore) {
	t.Helper()
	cfg := Config{Path: filepath.Join(t.TempDir(), "test.db")}
	cfg.defaults()
	db, err := open(cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &seenStore{db: db}, &journalStore{db: db}
}

func TestMarkSeenFirstAndDuplicate(t *testing.T) {
	store, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	first, err := store.MarkSeen(ctx, 42, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if !first {
		t.Error("first MarkSeen should report first-seen")
	}

	first, err = store.MarkSeen(ctx, 42, now.Add(time.Minute), now.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if first {
		t.Error("second MarkSeen within the window must report duplicate")
	}
}

func TestMarkSeenReadmitsAfterExpiry(t *testing.T) {
	store, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.MarkSeen(ctx, 42, now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	// Seen again after the record expired: counts as first-seen.
	later := now.Add(2 * time.Hour)
	first, err := store.MarkSeen(ctx, 42, later, later.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Error("expired record should be overwritten and report first-seen")
	}
}

func TestDeleteSeenReleasesID(t *testing.T) {
	store, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.MarkSeen(ctx, 42, now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteSeen(ctx, 42); err != nil {
		t.Fatalf("DeleteSeen: %v", err)
	}

	first, err := store.MarkSeen(ctx, 42, now, now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Error("deleted ID should be admissible again")
	}
}

func TestPruneSeen(t *testing.T) {
	store, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	if _, err := store.MarkSeen(ctx, 1, now.Add(-2*time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.MarkSeen(ctx, 2, now, now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	removed, err := store.PruneSeen(ctx, now)
	if err != nil {
		t.Fatalf("PruneSeen: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestSaveSessionPreservesFirstSeen(t *testing.T) {
	store, _ := openTestDB(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s := dedup.Session{Conversation: "42", ChatType: "private", FirstSeen: start, LastSeen: start, Messages: 1}
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	s.FirstSeen = start.Add(time.Hour) // must be ignored on upsert
	s.LastSeen = start.Add(time.Hour)
	s.Messages = 2
	if err := store.SaveSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	var firstSeen string
	var messages int
	err := store.db.QueryRowContext(ctx,
		"SELECT first_seen, messages FROM sessions WHERE conversation = ?", "42",
	).Scan(&firstSeen, &messages)
	if err != nil {
		t.Fatal(err)
	}
	if firstSeen != encodeTime(start) {
		t.Errorf("first_seen = %q, want original %q", firstSeen, encodeTime(start))
	}
	if messages != 2 {
		t.Errorf("messages = %d, want 2", messages)
	}
}

func TestPruneSessions(t *testing.T) {
	store, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	stale := dedup.Session{Conversation: "old", FirstSeen: now.Add(-10 * 24 * time.Hour), LastSeen: now.Add(-8 * 24 * time.Hour)}
	fresh := dedup.Session{Conversation: "new", FirstSeen: now, LastSeen: now}
	if err := store.SaveSession(ctx, stale); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSession(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := store.PruneSessions(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("PruneSessions: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func TestJournalLifecycle(t *testing.T) {
	_, journal := openTestDB(t)
	ctx := context.Background()

	outcome, parts, err := journal.Outcome(ctx, "msg-1")
	if err != nil {
		t.Fatalf("Outcome: %v", err)
	}
	if outcome != delivery.OutcomeUnknown || parts != 0 {
		t.Errorf("fresh outcome = %v/%d, want unknown/0", outcome, parts)
	}

	if err := journal.Begin(ctx, "msg-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := journal.MarkPart(ctx, "msg-1", 2); err != nil {
		t.Fatalf("MarkPart: %v", err)
	}
	// Part counts never regress.
	if err := journal.MarkPart(ctx, "msg-1", 1); err != nil {
		t.Fatal(err)
	}
	outcome, parts, err = journal.Outcome(ctx, "msg-1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != delivery.OutcomeUnknown || parts != 2 {
		t.Errorf("outcome = %v/%d, want unknown/2", outcome, parts)
	}

	if err := journal.MarkSucceeded(ctx, "msg-1"); err != nil {
		t.Fatalf("MarkSucceeded: %v", err)
	}
	outcome, _, err = journal.Outcome(ctx, "msg-1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != delivery.OutcomeSucceeded {
		t.Errorf("outcome = %v, want succeeded", outcome)
	}
}

func TestJournalBeginKeepsProgress(t *testing.T) {
	_, journal := openTestDB(t)
	ctx := context.Background()

	if err := journal.Begin(ctx, "msg-1"); err != nil {
		t.Fatal(err)
	}
	if err := journal.MarkPart(ctx, "msg-1", 3); err != nil {
		t.Fatal(err)
	}
	// A re-dispatch calls Begin again; parts_done must survive.
	if err := journal.Begin(ctx, "msg-1"); err != nil {
		t.Fatal(err)
	}
	_, parts, err := journal.Outcome(ctx, "msg-1")
	if err != nil {
		t.Fatal(err)
	}
	if parts != 3 {
		t.Errorf("parts = %d, want 3", parts)
	}
}

func TestJournalMarkFailedRecordsReason(t *testing.T) {
	_, journal := openTestDB(t)
	ctx := context.Background()

	if err := journal.MarkFailed(ctx, "msg-1", "chat not found"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	outcome, _, err := journal.Outcome(ctx, "msg-1")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != delivery.OutcomeFailed {
		t.Errorf("outcome = %v, want failed", outcome)
	}

	var reason string
	if err := journal.db.QueryRowContext(ctx, "SELECT reason FROM deliveries WHERE message_id = ?", "msg-1").Scan(&reason); err != nil {
		t.Fatal(err)
	}
	if reason != "chat not found" {
		t.Errorf("reason = %q", reason)
	}
}

func TestJournalPrune(t *testing.T) {
	_, journal := openTestDB(t)
	ctx := context.Background()

	if err := journal.MarkSucceeded(ctx, "old"); err != nil {
		t.Fatal(err)
	}

	removed, err := journal.Prune(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	outcome, _, err := journal.Outcome(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if outcome != delivery.OutcomeUnknown {
		t.Error("pruned record should be forgotten")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := Config{Path: filepath.Join(t.TempDir(), "test.db")}
	cfg.defaults()
	db, err := open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
