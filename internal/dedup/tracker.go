package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/tgbridge/pkg/message"
)

// Config tunes the dedup window and session lifetime.
type Config struct {
	// Window is how long an update ID is remembered. Telegram retries
	// unacknowledged webhooks for roughly a day, so the default is 24h.
	Window time.Duration `yaml:"window"`
	// SessionTTL evicts conversations idle longer than this.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

func (c *Config) defaults() {
	if c.Window <= 0 {
		c.Window = 24 * time.Hour
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 7 * 24 * time.Hour
	}
}

// Tracker decides whether an inbound update is new and maintains session
// records. All decisions are serialized under one mutex so that two
// concurrent deliveries of the same update ID admit exactly one.
type Tracker struct {
	mu       sync.Mutex
	config   Config
	seen     map[int64]time.Time // update ID -> expiry
	sessions map[string]*Session
	store    Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewTracker creates a tracker. store may be nil for purely in-process
// deduplication.
func NewTracker(cfg Config, store Store, logger *slog.Logger) *Tracker {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		config:   cfg,
		seen:     make(map[int64]time.Time),
		sessions: make(map[string]*Session),
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// SetStore attaches a durable store after construction. Must not be called
// concurrently with Admit.
func (t *Tracker) SetStore(s Store) { t.store = s }

// Admit reports whether the update is new within the dedup window and, when
// it is, records it and touches the conversation session. Duplicates return
// false and leave session state untouched.
func (t *Tracker) Admit(ctx context.Context, conversation string, chatType message.ChatType, updateID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if expiry, ok := t.seen[updateID]; ok && now.Before(expiry) {
		return false, nil
	}

	// Not in memory. After a restart the durable store may still know it.
	expiresAt := now.Add(t.config.Window)
	if t.store != nil {
		first, err := t.store.MarkSeen(ctx, updateID, now, expiresAt)
		if err != nil {
			return false, err
		}
		if !first {
			t.seen[updateID] = expiresAt
			return false, nil
		}
	}
	t.seen[updateID] = expiresAt

	t.touchSession(ctx, conversation, chatType, now)
	return true, nil
}

// touchSession updates the conversation record. Caller holds t.mu.
func (t *Tracker) touchSession(ctx context.Context, conversation string, chatType message.ChatType, now time.Time) {
	if conversation == "" {
		return
	}
	s, ok := t.sessions[conversation]
	if !ok {
		s = &Session{Conversation: conversation, ChatType: chatType, FirstSeen: now}
		t.sessions[conversation] = s
	}
	s.LastSeen = now
	s.Messages++
	if t.store != nil {
		if err := t.store.SaveSession(ctx, *s); err != nil {
			t.logger.Warn("session write-through failed", "conversation", conversation, "error", err)
		}
	}
}

// Forget releases an admitted update ID. Used when downstream publication
// fails after Admit, so the provider's redelivery is not mistaken for a
// duplicate.
func (t *Tracker) Forget(ctx context.Context, updateID int64) {
	t.mu.Lock()
	delete(t.seen, updateID)
	store := t.store
	t.mu.Unlock()

	if store != nil {
		if err := store.DeleteSeen(ctx, updateID); err != nil {
			t.logger.Warn("failed to release seen record", "update_id", updateID, "error", err)
		}
	}
}

// SessionCount returns the number of live sessions.
func (t *Tracker) SessionCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Sessions returns a snapshot of live session records.
func (t *Tracker) Sessions() []Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, *s)
	}
	return out
}

// Sweep evicts expired update IDs and idle sessions, in memory and in the
// store. It returns the counts removed from memory.
func (t *Tracker) Sweep(ctx context.Context) (seenRemoved, sessionsRemoved int, err error) {
	t.mu.Lock()
	now := t.now()
	for id, expiry := range t.seen {
		if !now.Before(expiry) {
			delete(t.seen, id)
			seenRemoved++
		}
	}
	idleCutoff := now.Add(-t.config.SessionTTL)
	for key, s := range t.sessions {
		if s.LastSeen.Before(idleCutoff) {
			delete(t.sessions, key)
			sessionsRemoved++
		}
	}
	store := t.store
	t.mu.Unlock()

	if store != nil {
		if _, serr := store.PruneSeen(ctx, now); serr != nil {
			err = serr
		}
		if _, serr := store.PruneSessions(ctx, idleCutoff); serr != nil && err == nil {
			err = serr
		}
	}
	return seenRemoved, sessionsRemoved, err
}
