package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flemzord/tgbridge/internal/dedup"
)

// seenStore implements dedup.Store backed by SQLite.
type seenStore struct {
	db *sql.DB
}

// timeFormat is the stored timestamp encoding. RFC 3339 with nanoseconds in
// UTC compares lexicographically in time order, so the prune queries can
// compare TEXT columns directly.
const timeFormat = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// MarkSeen records an update ID and reports whether this was the first
// sighting. An existing record whose expiry has passed is overwritten and
// counts as first-seen again.
func (s *seenStore) MarkSeen(ctx context.Context, updateID int64, seenAt, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_updates (update_id, seen_at, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(update_id) DO UPDATE SET
			seen_at    = excluded.seen_at,
			expires_at = excluded.expires_at
		WHERE seen_updates.expires_at <= excluded.seen_at`,
		updateID, encodeTime(seenAt), encodeTime(expiresAt),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: mark seen %d: %w", updateID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: mark seen %d: %w", updateID, err)
	}
	return n > 0, nil
}

// DeleteSeen removes a seen record, releasing the ID for readmission.
func (s *seenStore) DeleteSeen(ctx context.Context, updateID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM seen_updates WHERE update_id = ?", updateID); err != nil {
		return fmt.Errorf("sqlite: delete seen %d: %w", updateID, err)
	}
	return nil
}

// SaveSession upserts a session record, preserving the original first_seen.
func (s *seenStore) SaveSession(ctx context.Context, sess dedup.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (conversation, chat_type, first_seen, last_seen, messages)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(conversation) DO UPDATE SET
			chat_type = excluded.chat_type,
			last_seen = excluded.last_seen,
			messages  = excluded.messages`,
		sess.Conversation, string(sess.ChatType),
		encodeTime(sess.FirstSeen), encodeTime(sess.LastSeen), sess.Messages,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save session %s: %w", sess.Conversation, err)
	}
	return nil
}

// PruneSeen removes expired seen records.
func (s *seenStore) PruneSeen(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM seen_updates WHERE expires_at <= ?", encodeTime(now))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune seen: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune seen: %w", err)
	}
	return int(n), nil
}

// PruneSessions removes sessions idle since the cutoff.
func (s *seenStore) PruneSessions(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE last_seen < ?", encodeTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune sessions: %w", err)
	}
	return int(n), nil
}
