package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/tgbridge/pkg/message"
)

// EventKind distinguishes dispatcher notifications.
type EventKind int

const (
	// EventRetrying is emitted before each scheduled retry.
	EventRetrying EventKind = iota
	// EventDelivered is emitted once when every part has been accepted.
	EventDelivered
	// EventFailed is emitted once when the message fails permanently.
	EventFailed
)

// Event is a delivery progress notification. Attempt counts the attempts
// made so far for the part currently being sent.
type Event struct {
	MessageID string
	Kind      EventKind
	Attempt   int
	Reason    string
}

// Config tunes retry and pacing behavior.
type Config struct {
	// MaxAttempts bounds attempts per request part, first try included.
	MaxAttempts int `yaml:"max_attempts"`
	// InitialBackoff is the wait before the first retry; it doubles each
	// retry up to MaxBackoff.
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	// Rate and Burst configure the token bucket pacing provider calls.
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

func (c *Config) defaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.Rate <= 0 {
		c.Rate = 30
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
}

// Dispatcher drives one message at a time through encode, pace, send, retry.
// A message moves from pending to in-flight, then to delivered, a scheduled
// retry, or permanent failure. The journal makes Dispatch idempotent: a
// message with a recorded terminal outcome is skipped.
type Dispatcher struct {
	config  Config
	encoder Encoder
	sender  Sender
	limiter *Limiter
	clock   Clock
	logger  *slog.Logger
	notify  func(Event)

	mu      sync.RWMutex
	journal Journal
}

// NewDispatcher wires a dispatcher. journal, clock, and logger may be nil;
// defaults are an in-process journal, the system clock, and slog.Default.
func NewDispatcher(cfg Config, encoder Encoder, sender Sender, journal Journal, clock Clock, logger *slog.Logger) *Dispatcher {
	cfg.defaults()
	if journal == nil {
		journal = NewMemoryJournal()
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		config:  cfg,
		encoder: encoder,
		sender:  sender,
		journal: journal,
		limiter: NewLimiter(cfg.Rate, cfg.Burst, clock),
		clock:   clock,
		logger:  logger,
	}
}

// OnEvent registers the progress callback. Must be called before Dispatch.
func (d *Dispatcher) OnEvent(fn func(Event)) { d.notify = fn }

// SetJournal swaps the journal, used when a durable store becomes available
// after construction. Safe to call while dispatches are in flight; each
// dispatch keeps the journal it captured when it started.
func (d *Dispatcher) SetJournal(j Journal) {
	if j == nil {
		return
	}
	d.mu.Lock()
	d.journal = j
	d.mu.Unlock()
}

func (d *Dispatcher) currentJournal() Journal {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.journal
}

func (d *Dispatcher) emit(ev Event) {
	if d.notify != nil {
		d.notify(ev)
	}
}

// Dispatch delivers one outbound message. It returns nil once every part is
// accepted or the message was already delivered, and an error on permanent
// failure or context cancellation. Progress is reported through OnEvent.
func (d *Dispatcher) Dispatch(ctx context.Context, msg message.OutboundMessage) error {
	journal := d.currentJournal()

	outcome, partsDone, err := journal.Outcome(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("delivery: journal lookup: %w", err)
	}
	switch outcome {
	case OutcomeSucceeded:
		d.logger.Debug("skipping already delivered message", "message_id", msg.ID)
		return nil
	case OutcomeFailed:
		d.logger.Debug("skipping permanently failed message", "message_id", msg.ID)
		return nil
	}

	if err := journal.Begin(ctx, msg.ID); err != nil {
		return fmt.Errorf("delivery: journal begin: %w", err)
	}

	requests, err := d.encoder.Encode(msg)
	if err != nil {
		reason := err.Error()
		if jerr := journal.MarkFailed(ctx, msg.ID, reason); jerr != nil {
			d.logger.Error("journal mark failed", "message_id", msg.ID, "error", jerr)
		}
		d.emit(Event{MessageID: msg.ID, Kind: EventFailed, Attempt: 0, Reason: reason})
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	for i := partsDone; i < len(requests); i++ {
		if err := d.sendPart(ctx, journal, msg.ID, requests[i]); err != nil {
			return err
		}
		if err := journal.MarkPart(ctx, msg.ID, i+1); err != nil {
			d.logger.Error("journal mark part", "message_id", msg.ID, "error", err)
		}
	}

	if err := journal.MarkSucceeded(ctx, msg.ID); err != nil {
		d.logger.Error("journal mark succeeded", "message_id", msg.ID, "error", err)
	}
	d.emit(Event{MessageID: msg.ID, Kind: EventDelivered})
	return nil
}

// sendPart attempts one request with pacing and retry until success, a
// permanent failure, attempt exhaustion, or cancellation.
func (d *Dispatcher) sendPart(ctx context.Context, journal Journal, messageID string, req Request) error {
	backoff := d.config.InitialBackoff
	for attempt := 1; ; attempt++ {
		if err := d.limiter.Acquire(ctx); err != nil {
			return err
		}

		err := d.sender.Send(ctx, req)
		if err == nil {
			return nil
		}

		transient, retryAfter := classify(err)
		if !transient {
			reason := err.Error()
			if jerr := journal.MarkFailed(ctx, messageID, reason); jerr != nil {
				d.logger.Error("journal mark failed", "message_id", messageID, "error", jerr)
			}
			d.emit(Event{MessageID: messageID, Kind: EventFailed, Attempt: attempt, Reason: reason})
			return fmt.Errorf("delivery: %s failed permanently: %w", req.Method, err)
		}
		if attempt >= d.config.MaxAttempts {
			reason := fmt.Sprintf("gave up after %d attempts: %v", attempt, err)
			if jerr := journal.MarkFailed(ctx, messageID, reason); jerr != nil {
				d.logger.Error("journal mark failed", "message_id", messageID, "error", jerr)
			}
			d.emit(Event{MessageID: messageID, Kind: EventFailed, Attempt: attempt, Reason: reason})
			return fmt.Errorf("delivery: %s gave up after %d attempts: %w", req.Method, attempt, err)
		}

		wait := backoff
		if retryAfter > wait {
			wait = retryAfter
		}
		d.logger.Warn("transient send failure, retrying",
			"message_id", messageID,
			"method", req.Method,
			"attempt", attempt,
			"wait", wait,
			"error", err)
		d.emit(Event{MessageID: messageID, Kind: EventRetrying, Attempt: attempt, Reason: err.Error()})

		select {
		case <-d.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
		if backoff > d.config.MaxBackoff {
			backoff = d.config.MaxBackoff
		}
	}
}
