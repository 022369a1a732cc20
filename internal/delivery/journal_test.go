package delivery

import (
	"context"
	"testing"
	"time"
)

func TestMemoryJournalLifecycle(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()

	outcome, parts, err := j.Outcome(ctx, "m1")
	if err != nil || outcome != OutcomeUnknown || parts != 0 {
		t.Fatalf("fresh journal: outcome=%d parts=%d err=%v", outcome, parts, err)
	}

	if err := j.Begin(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	if err := j.MarkPart(ctx, "m1", 2); err != nil {
		t.Fatal(err)
	}
	// A stale lower part count must not regress progress.
	if err := j.MarkPart(ctx, "m1", 1); err != nil {
		t.Fatal(err)
	}

	_, parts, _ = j.Outcome(ctx, "m1")
	if parts != 2 {
		t.Errorf("parts = %d, want 2", parts)
	}

	if err := j.MarkSucceeded(ctx, "m1"); err != nil {
		t.Fatal(err)
	}
	outcome, _, _ = j.Outcome(ctx, "m1")
	if outcome != OutcomeSucceeded {
		t.Errorf("outcome = %d, want OutcomeSucceeded", outcome)
	}
}

func TestMemoryJournalPrune(t *testing.T) {
	j := NewMemoryJournal()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return base }
	if err := j.MarkSucceeded(ctx, "old"); err != nil {
		t.Fatal(err)
	}

	j.now = func() time.Time { return base.Add(48 * time.Hour) }
	if err := j.MarkSucceeded(ctx, "fresh"); err != nil {
		t.Fatal(err)
	}

	removed, err := j.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	outcome, _, _ := j.Outcome(ctx, "fresh")
	if outcome != OutcomeSucceeded {
		t.Error("fresh entry was pruned")
	}
	outcome, _, _ = j.Outcome(ctx, "old")
	if outcome != OutcomeUnknown {
		t.Error("old entry survived prune")
	}
}
