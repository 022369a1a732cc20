package telegram

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	maxConsecutivePollingErrors = 5
	errorPauseDuration          = 30 * time.Second
)

// Poller receives updates over getUpdates long polling and feeds each one
// to the channel's shared update handler.
type Poller struct {
	client   *Client
	handle   func(ctx context.Context, update *Update) error
	logger   *slog.Logger
	config   Config
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a poller. Start launches the loop.
func NewPoller(client *Client, handle func(ctx context.Context, update *Update) error, logger *slog.Logger, config Config) *Poller {
	return &Poller{
		client: client,
		handle: handle,
		logger: logger,
		config: config,
		done:   make(chan struct{}),
	}
}

// Start launches the polling loop in a goroutine.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.loop(ctx)
}

// Stop cancels the polling loop and waits for it to finish. Safe to call
// multiple times.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	<-p.done
}

// loop runs until the context is cancelled. The offset only advances past
// an update once the handler returns, so a failed publish is re-fetched on
// the next poll instead of being lost.
func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	var offset int64
	var consecutiveErrors int

	for {
		if ctx.Err() != nil {
			return
		}

		updates, err := p.client.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         offset,
			Timeout:        p.config.PollingTimeout,
			AllowedUpdates: p.config.AllowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			p.logger.Error("polling getUpdates failed",
				"error", err,
				"consecutive_errors", consecutiveErrors,
			)
			if consecutiveErrors >= maxConsecutivePollingErrors {
				p.logger.Warn("polling paused after consecutive errors", "pause", errorPauseDuration)
				select {
				case <-ctx.Done():
					return
				case <-time.After(errorPauseDuration):
				}
				consecutiveErrors = 0
			}
			continue
		}
		consecutiveErrors = 0

		for i := range updates {
			update := &updates[i]
			if err := p.handle(ctx, update); err != nil {
				// Malformed updates are consumed: redelivery cannot fix
				// them and would stall the poll loop.
				if errors.Is(err, ErrMalformedUpdate) {
					offset = update.UpdateID + 1
					continue
				}
				p.logger.Error("failed to process update",
					"update_id", update.UpdateID,
					"error", err,
				)
				// Do not acknowledge; getUpdates will return it again.
				break
			}
			offset = update.UpdateID + 1
		}
	}
}
