// Package dedup guards the inbound path against duplicate provider updates
// and tracks lightweight per-conversation session state. Providers that
// deliver at-least-once (Telegram re-sends updates until acknowledged) rely
// on this package for exactly-once admission.
package dedup

import (
	"context"
	"time"

	"github.com/flemzord/tgbridge/pkg/message"
)

// Session is the per-conversation activity record. Conversation is the
// channel-scoped conversation key (message.Chat.ID on Telegram).
type Session struct {
	Conversation string           `json:"conversation"`
	ChatType     message.ChatType `json:"chat_type"`
	FirstSeen    time.Time        `json:"first_seen"`
	LastSeen     time.Time        `json:"last_seen"`
	Messages     int              `json:"messages"`
}

// Store persists seen-update and session state across restarts. All methods
// are best-effort from the tracker's point of view: the in-memory state is
// authoritative within a process lifetime, the store catches duplicates
// that arrive after a restart.
type Store interface {
	// MarkSeen records an update ID and reports whether this is the first
	// time it was seen. Records expire at expiresAt.
	MarkSeen(ctx context.Context, updateID int64, seenAt, expiresAt time.Time) (bool, error)
	// DeleteSeen removes a seen record, releasing the ID for readmission.
	DeleteSeen(ctx context.Context, updateID int64) error
	// SaveSession upserts a session record.
	SaveSession(ctx context.Context, s Session) error
	// PruneSeen removes expired seen records and returns the count removed.
	PruneSeen(ctx context.Context, now time.Time) (int, error)
	// PruneSessions removes sessions idle since the cutoff.
	PruneSessions(ctx context.Context, cutoff time.Time) (int, error)
}
