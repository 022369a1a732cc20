// Package heartbeat periodically reports bridge liveness to an external
// monitoring endpoint (a dead man's switch such as healthchecks.io). A
// missing ping tells the operator the bridge is down even when the bridge
// itself can no longer say so.
package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Sentinel errors for heartbeat operations.
var (
	ErrAlreadyStarted = errors.New("heartbeat: already started")
	ErrNotStarted     = errors.New("heartbeat: not started")
)

// Stats is the payload posted with each ping.
type Stats struct {
	Channels []string `json:"channels"`
	Sessions int      `json:"sessions"`
}

// StatsSource supplies the current bridge state for each ping.
type StatsSource interface {
	Stats() Stats
}

// Config holds heartbeat configuration.
type Config struct {
	// URL receives a POST with a Stats JSON body on every tick. An empty
	// URL disables the heartbeat.
	URL string `yaml:"url"`
	// Interval between pings. Defaults to 5 minutes.
	Interval time.Duration `yaml:"interval"`
	// Timeout for each ping request. Defaults to 10 seconds.
	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Reporter runs a dedicated goroutine that pings the configured endpoint.
type Reporter struct {
	cfg    Config
	source StatsSource
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Reporter. source must not be nil.
func New(cfg Config, source StatsSource, logger *slog.Logger) (*Reporter, error) {
	if source == nil {
		return nil, errors.New("heartbeat: nil StatsSource")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Reporter{
		cfg:    cfg,
		source: source,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

// Start begins the ticker loop. Returns ErrAlreadyStarted if called twice.
func (r *Reporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, r.cancel = context.WithCancel(ctx)
	go r.run(ctx)
	return nil
}

// Stop stops the loop. Returns ErrNotStarted if not running.
func (r *Reporter) Stop(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel == nil {
		return ErrNotStarted
	}

	r.cancel()
	r.cancel = nil
	return nil
}

// run is the main ticker loop.
func (r *Reporter) run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ping(ctx); err != nil {
				r.logger.Warn("heartbeat ping failed", "url", r.cfg.URL, "error", err)
			}
		}
	}
}

// ping posts the current stats. A non-2xx response is an error so the
// operator sees misconfigured endpoints in the log.
func (r *Reporter) ping(ctx context.Context) error {
	body, err := json.Marshal(r.source.Stats())
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return nil
}
