package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/tgbridge/internal/delivery"
)

// journalStore implements delivery.Journal backed by SQLite.
type journalStore struct {
	db *sql.DB
}

// Outcome returns the recorded terminal state and completed part count.
func (j *journalStore) Outcome(ctx context.Context, messageID string) (delivery.Outcome, int, error) {
	var outcome, partsDone int
	err := j.db.QueryRowContext(ctx,
		"SELECT outcome, parts_done FROM deliveries WHERE message_id = ?", messageID,
	).Scan(&outcome, &partsDone)
	if errors.Is(err, sql.ErrNoRows) {
		return delivery.OutcomeUnknown, 0, nil
	}
	if err != nil {
		return delivery.OutcomeUnknown, 0, fmt.Errorf("sqlite: journal outcome %s: %w", messageID, err)
	}
	return delivery.Outcome(outcome), partsDone, nil
}

// Begin records that delivery of the message has started. An existing record
// is left untouched so a resumed dispatch keeps its parts_done progress.
func (j *journalStore) Begin(ctx context.Context, messageID string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries (message_id, updated_at) VALUES (?, ?)
		ON CONFLICT(message_id) DO NOTHING`,
		messageID, encodeTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: journal begin %s: %w", messageID, err)
	}
	return nil
}

// MarkPart records that the first n parts were delivered. The count never
// regresses.
func (j *journalStore) MarkPart(ctx context.Context, messageID string, n int) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries (message_id, parts_done, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			parts_done = MAX(deliveries.parts_done, excluded.parts_done),
			updated_at = excluded.updated_at`,
		messageID, n, encodeTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: journal mark part %s: %w", messageID, err)
	}
	return nil
}

// MarkSucceeded records terminal success.
func (j *journalStore) MarkSucceeded(ctx context.Context, messageID string) error {
	return j.setOutcome(ctx, messageID, delivery.OutcomeSucceeded, "")
}

// MarkFailed records terminal failure with a reason.
func (j *journalStore) MarkFailed(ctx context.Context, messageID string, reason string) error {
	return j.setOutcome(ctx, messageID, delivery.OutcomeFailed, reason)
}

func (j *journalStore) setOutcome(ctx context.Context, messageID string, outcome delivery.Outcome, reason string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries (message_id, outcome, reason, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id) DO UPDATE SET
			outcome    = excluded.outcome,
			reason     = excluded.reason,
			updated_at = excluded.updated_at`,
		messageID, int(outcome), reason, encodeTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("sqlite: journal outcome %s: %w", messageID, err)
	}
	return nil
}

// Prune removes records not touched since the cutoff.
func (j *journalStore) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := j.db.ExecContext(ctx, "DELETE FROM deliveries WHERE updated_at < ?", encodeTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("sqlite: journal prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: journal prune: %w", err)
	}
	return int(n), nil
}
