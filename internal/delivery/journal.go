package delivery

import (
	"context"
	"sync"
	"time"
)

// Outcome is the journaled terminal state of a message.
type Outcome int

const (
	// OutcomeUnknown means the journal has no terminal record for the message.
	OutcomeUnknown Outcome = iota
	// OutcomeSucceeded means every part of the message was delivered.
	OutcomeSucceeded
	// OutcomeFailed means the message failed permanently.
	OutcomeFailed
)

// Journal records delivery outcomes so that a message re-dispatched after a
// crash or duplicate enqueue is not sent twice. PartsDone tracks how many
// leading parts of a multi-part message were already delivered, letting a
// resumed dispatch skip them.
type Journal interface {
	// Outcome returns the recorded terminal state and completed part count.
	Outcome(ctx context.Context, messageID string) (Outcome, int, error)
	// Begin records that delivery of the message has started.
	Begin(ctx context.Context, messageID string) error
	// MarkPart records that the first n parts were delivered.
	MarkPart(ctx context.Context, messageID string, n int) error
	// MarkSucceeded records terminal success.
	MarkSucceeded(ctx context.Context, messageID string) error
	// MarkFailed records terminal failure with a reason.
	MarkFailed(ctx context.Context, messageID string, reason string) error
	// Prune removes records not touched since the cutoff and returns the
	// number removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

type journalEntry struct {
	outcome   Outcome
	partsDone int
	reason    string
	updatedAt time.Time
}

// MemoryJournal is an in-process Journal. It survives for the life of the
// process only; the sqlite store provides the durable implementation.
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string]*journalEntry
	now     func() time.Time
}

var _ Journal = (*MemoryJournal)(nil)

// NewMemoryJournal creates an empty in-process journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		entries: make(map[string]*journalEntry),
		now:     time.Now,
	}
}

func (j *MemoryJournal) Outcome(_ context.Context, messageID string) (Outcome, int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[messageID]
	if !ok {
		return OutcomeUnknown, 0, nil
	}
	return e.outcome, e.partsDone, nil
}

func (j *MemoryJournal) Begin(_ context.Context, messageID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.entries[messageID]; !ok {
		j.entries[messageID] = &journalEntry{updatedAt: j.now()}
	}
	return nil
}

func (j *MemoryJournal) MarkPart(_ context.Context, messageID string, n int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[messageID]
	if !ok {
		e = &journalEntry{}
		j.entries[messageID] = e
	}
	if n > e.partsDone {
		e.partsDone = n
	}
	e.updatedAt = j.now()
	return nil
}

func (j *MemoryJournal) MarkSucceeded(_ context.Context, messageID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[messageID]
	if !ok {
		e = &journalEntry{}
		j.entries[messageID] = e
	}
	e.outcome = OutcomeSucceeded
	e.updatedAt = j.now()
	return nil
}

func (j *MemoryJournal) MarkFailed(_ context.Context, messageID string, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	e, ok := j.entries[messageID]
	if !ok {
		e = &journalEntry{}
		j.entries[messageID] = e
	}
	e.outcome = OutcomeFailed
	e.reason = reason
	e.updatedAt = j.now()
	return nil
}

func (j *MemoryJournal) Prune(_ context.Context, cutoff time.Time) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	removed := 0
	for id, e := range j.entries {
		if e.updatedAt.Before(cutoff) {
			delete(j.entries, id)
			removed++
		}
	}
	return removed, nil
}
