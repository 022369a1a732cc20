package bridge

import (
	"time"

	"github.com/flemzord/tgbridge/internal/heartbeat"
)

const (
	defaultSweepSchedule = "*/10 * * * *"
	defaultPruneSchedule = "30 3 * * *"
)

// Config tunes the bridge loops and maintenance schedules.
type Config struct {
	// Workers is the number of concurrent outbound delivery loops.
	Workers int `yaml:"workers"`

	// SweepSchedule is the cron expression for dedup window sweeps and
	// session eviction. Defaults to every 10 minutes.
	SweepSchedule string `yaml:"sweep_schedule"`

	// JournalPruneSchedule is the cron expression for delivery journal
	// pruning. Defaults to 03:30 daily.
	JournalPruneSchedule string `yaml:"journal_prune_schedule"`

	// JournalRetention is how long delivery outcomes are kept. Defaults to
	// 7 days, matching the session TTL.
	JournalRetention time.Duration `yaml:"journal_retention"`

	// Heartbeat configures the optional liveness reporter. Disabled unless
	// a URL is set.
	Heartbeat heartbeat.Config `yaml:"heartbeat"`
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = defaultSweepSchedule
	}
	if c.JournalPruneSchedule == "" {
		c.JournalPruneSchedule = defaultPruneSchedule
	}
	if c.JournalRetention <= 0 {
		c.JournalRetention = 7 * 24 * time.Hour
	}
}
