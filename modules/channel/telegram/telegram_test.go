package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/flemzord/tgbridge/internal/channel"
	"github.com/flemzord/tgbridge/internal/dedup"
	"github.com/flemzord/tgbridge/pkg/message"
	"gopkg.in/yaml.v3"
)

func TestConfigureAppliesDefaults(t *testing.T) {
	tg := &Telegram{}
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(`token: "123:abc"`), &node); err != nil {
		t.Fatal(err)
	}
	if err := tg.Configure(node.Content[0]); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if tg.config.Mode != "polling" {
		t.Errorf("Mode = %q, want polling default", tg.config.Mode)
	}
	if tg.config.MaxMessageLength != 4096 {
		t.Errorf("MaxMessageLength = %d, want 4096", tg.config.MaxMessageLength)
	}
	if tg.config.APIURL != "https://api.telegram.org" {
		t.Errorf("APIURL = %q", tg.config.APIURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "missing token",
			config:  Config{Mode: "polling"},
			wantErr: "token is required",
		},
		{
			name:    "bad mode",
			config:  Config{Token: "123:abc", Mode: "carrier-pigeon"},
			wantErr: "invalid mode",
		},
		{
			name:    "webhook without url",
			config:  Config{Token: "123:abc", Mode: "webhook"},
			wantErr: "webhook_url is required",
		},
		{
			name:    "bad token format",
			config:  Config{Token: "nope", Mode: "polling"},
			wantErr: "token format invalid",
		},
		{
			name:   "valid polling",
			config: Config{Token: "123:abc", Mode: "polling"},
		},
		{
			name:   "valid webhook",
			config: Config{Token: "123:abc", Mode: "webhook", WebhookURL: "https://bridge.example/webhooks/telegram"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.defaults()
			tg := &Telegram{config: tt.config}
			err := tg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

// inboxRecorder captures published inbound messages and optionally fails.
type inboxRecorder struct {
	mu   sync.Mutex
	msgs []message.InboundMessage
	err  error
}

func (r *inboxRecorder) inbox(_ context.Context, msg message.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *inboxRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func processTestChannel(t *testing.T, cfg Config) (*Telegram, *inboxRecorder) {
	t.Helper()
	cfg.defaults()
	logger := slog.New(slog.DiscardHandler)
	rec := &inboxRecorder{}
	tg := &Telegram{
		config:  cfg,
		logger:  logger,
		tracker: dedup.NewTracker(cfg.Dedup, nil, logger),
		inbox:   channel.Inbox(rec.inbox),
	}
	return tg, rec
}

func TestProcessUpdateDeduplicates(t *testing.T) {
	tg, rec := processTestChannel(t, Config{Token: "123:abc"})
	ctx := context.Background()

	update := textUpdate(1001, 1, 42, "hello")
	if err := tg.processUpdate(ctx, update); err != nil {
		t.Fatalf("first processUpdate() error: %v", err)
	}
	if err := tg.processUpdate(ctx, update); err != nil {
		t.Fatalf("duplicate processUpdate() error: %v", err)
	}
	if got := rec.count(); got != 1 {
		t.Errorf("published %d messages, want 1", got)
	}
}

func TestProcessUpdateAllowlistRejection(t *testing.T) {
	cfg := Config{Token: "123:abc"}
	cfg.Allow.ChatIDs = []string{"99"}
	tg, rec := processTestChannel(t, cfg)
	ctx := context.Background()

	update := textUpdate(1001, 1, 42, "hello")
	if err := tg.processUpdate(ctx, update); err != nil {
		t.Fatalf("processUpdate() error: %v", err)
	}
	if rec.count() != 0 {
		t.Error("rejected update must not be published")
	}

	// The rejection sticks: a redelivery is a duplicate, not a second chance.
	if err := tg.processUpdate(ctx, update); err != nil {
		t.Fatal(err)
	}
	if rec.count() != 0 {
		t.Error("redelivered rejected update must stay rejected")
	}
}

func TestProcessUpdateReleasesIDOnPublishFailure(t *testing.T) {
	tg, rec := processTestChannel(t, Config{Token: "123:abc"})
	ctx := context.Background()

	rec.err = errors.New("bus full")
	update := textUpdate(1001, 1, 42, "hello")
	if err := tg.processUpdate(ctx, update); err == nil {
		t.Fatal("expected error when publish fails")
	}

	// Redelivery after the failure must go through.
	rec.err = nil
	if err := tg.processUpdate(ctx, update); err != nil {
		t.Fatalf("redelivered processUpdate() error: %v", err)
	}
	if got := rec.count(); got != 1 {
		t.Errorf("published %d messages, want 1", got)
	}
}

func TestProcessUpdateSkipsEmptyUpdate(t *testing.T) {
	tg, rec := processTestChannel(t, Config{Token: "123:abc"})
	if err := tg.processUpdate(context.Background(), &Update{UpdateID: 4}); err != nil {
		t.Fatalf("processUpdate() error: %v", err)
	}
	if rec.count() != 0 {
		t.Error("empty update must not be published")
	}
}
