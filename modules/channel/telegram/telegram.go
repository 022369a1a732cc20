package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flemzord/tgbridge/internal/channel"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/dedup"
	"github.com/flemzord/tgbridge/internal/delivery"
	"github.com/flemzord/tgbridge/internal/gateway"
	"github.com/flemzord/tgbridge/internal/metrics"
	"github.com/flemzord/tgbridge/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Telegram{})
}

// Compile-time interface guards.
var (
	_ channel.Channel   = (*Telegram)(nil)
	_ core.Configurable = (*Telegram)(nil)
	_ core.Provisioner  = (*Telegram)(nil)
	_ core.Validator    = (*Telegram)(nil)
	_ core.Starter      = (*Telegram)(nil)
	_ core.Stopper      = (*Telegram)(nil)
)

// Telegram is the Telegram Bot API channel module.
type Telegram struct {
	config     Config
	client     *Client
	logger     *slog.Logger
	appCtx     *core.AppContext
	tracker    *dedup.Tracker
	dispatcher *delivery.Dispatcher
	inbox      channel.Inbox
	mets       *metrics.Metrics
	botUser    *User

	// Set during Start depending on mode.
	poller          *Poller
	webhookReceiver *WebhookReceiver
}

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.telegram",
		New: func() core.Module { return &Telegram{} },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner. Durable stores attach later, at
// Start, because module load order is alphabetical and the store module may
// not be provisioned yet.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.appCtx = ctx
	t.logger = ctx.Logger
	t.client = NewClient(t.config.Token, t.config.APIURL)
	t.tracker = dedup.NewTracker(t.config.Dedup, nil, t.logger)
	t.dispatcher = delivery.NewDispatcher(
		t.config.Delivery,
		&encoder{maxMessageLength: t.config.MaxMessageLength},
		&sender{client: t.client},
		nil, nil, t.logger,
	)

	ctx.RegisterService(string(t.ModuleInfo().ID), t)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	if t.config.Token == "" {
		return errors.New("telegram: token is required")
	}
	switch t.config.Mode {
	case "polling", "webhook":
	default:
		return fmt.Errorf("telegram: invalid mode %q (must be \"polling\" or \"webhook\")", t.config.Mode)
	}
	if t.config.Mode == "webhook" && t.config.WebhookURL == "" {
		return errors.New("telegram: webhook_url is required when mode is \"webhook\"")
	}
	return t.config.validate()
}

// Start implements core.Starter. It binds optional shared services,
// validates the bot token, then starts polling or webhook reception.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return errors.New("telegram: inbox not set, call SetInbox before Start")
	}

	if svc, ok := t.appCtx.Service("dedup.store"); ok {
		if store, ok := svc.(dedup.Store); ok {
			t.tracker.SetStore(store)
		}
	}
	if svc, ok := t.appCtx.Service("delivery.journal"); ok {
		if journal, ok := svc.(delivery.Journal); ok {
			t.dispatcher.SetJournal(journal)
		}
	}
	if svc, ok := t.appCtx.Service("metrics"); ok {
		if m, ok := svc.(*metrics.Metrics); ok {
			t.mets = m
		}
	}

	user, err := t.client.GetMe(context.Background())
	if err != nil {
		return fmt.Errorf("telegram: getMe failed (check token): %w", err)
	}
	t.botUser = user
	t.logger.Info("telegram bot authenticated", "id", user.ID, "username", user.Username)

	switch t.config.Mode {
	case "polling":
		t.poller = NewPoller(t.client, t.processUpdate, t.logger, t.config)
		t.poller.Start()
		t.logger.Info("telegram polling started", "timeout", t.config.PollingTimeout)

	case "webhook":
		if t.config.WebhookSecret == "" {
			t.logger.Warn("telegram webhook running without secret_token")
		}
		t.webhookReceiver = NewWebhookReceiver(t.processUpdate, t.config.WebhookSecret, t.countMalformed)

		if err := t.registerWebhook(); err != nil {
			return err
		}
		if err := t.client.SetWebhook(context.Background(), SetWebhookRequest{
			URL:            t.config.WebhookURL,
			SecretToken:    t.config.WebhookSecret,
			AllowedUpdates: t.config.AllowedUpdates,
		}); err != nil {
			return fmt.Errorf("telegram: setWebhook failed: %w", err)
		}
		t.logger.Info("telegram webhook configured", "url", t.config.WebhookURL)
	}

	return nil
}

// registerWebhook attaches the receiver to the gateway's webhook dispatcher.
func (t *Telegram) registerWebhook() error {
	svc, ok := t.appCtx.Service("gateway.webhook_dispatcher")
	if !ok {
		return errors.New("telegram: gateway.webhook_dispatcher service not found (is the gateway module loaded?)")
	}
	wd, ok := svc.(*gateway.WebhookDispatcher)
	if !ok {
		return errors.New("telegram: gateway.webhook_dispatcher has unexpected type")
	}
	wd.Register("telegram", t.webhookReceiver)
	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	t.logger.Info("telegram channel stopping")

	switch t.config.Mode {
	case "polling":
		if t.poller != nil {
			t.poller.Stop()
		}
	case "webhook":
		if err := t.client.DeleteWebhook(ctx); err != nil {
			t.logger.Warn("failed to delete webhook on shutdown", "error", err)
		}
	}
	return nil
}

// Dispatcher implements channel.Channel.
func (t *Telegram) Dispatcher() *delivery.Dispatcher { return t.dispatcher }

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn channel.Inbox) { t.inbox = fn }

// Tracker exposes the dedup tracker for maintenance jobs.
func (t *Telegram) Tracker() *dedup.Tracker { return t.tracker }

func (t *Telegram) countInbound(result string) {
	if t.mets != nil {
		t.mets.InboundUpdates.WithLabelValues(result).Inc()
	}
}

func (t *Telegram) countMalformed() { t.countInbound(metrics.ResultMalformed) }

// processUpdate is the shared inbound path for polling and webhook modes:
// normalize, deduplicate, filter, publish. An inbox failure releases the
// update ID so the provider's redelivery gets another chance.
func (t *Telegram) processUpdate(ctx context.Context, update *Update) error {
	ctx, span := tracing.StartSpan(ctx, "telegram", "inbound.process",
		attribute.Int64("telegram.update_id", update.UpdateID),
	)
	defer span.End()

	msg, err := normalizeUpdate(update, string(t.ModuleInfo().ID))
	if err != nil {
		switch {
		case errors.Is(err, errNoMessage):
			t.logger.Debug("skipping update", "update_id", update.UpdateID, "reason", err)
			return nil
		case errors.Is(err, ErrMalformedUpdate):
			t.countInbound(metrics.ResultMalformed)
			t.logger.Warn("malformed update rejected", "update_id", update.UpdateID, "error", err)
			return err
		default:
			t.countInbound(metrics.ResultMalformed)
			return err
		}
	}

	admitted, err := t.tracker.Admit(ctx, msg.Chat.ID, msg.Chat.Type, update.UpdateID)
	if err != nil {
		return fmt.Errorf("telegram: dedup admit: %w", err)
	}
	if !admitted {
		t.countInbound(metrics.ResultDuplicate)
		t.logger.Debug("duplicate update dropped", "update_id", update.UpdateID)
		return nil
	}

	if !t.config.Allow.Allowed(msg.Chat, msg.Sender) {
		// Stays admitted: a rejected update must not be re-processed on
		// provider redelivery.
		t.countInbound(metrics.ResultRejected)
		t.logger.Debug("update denied by allowlist",
			"update_id", update.UpdateID,
			"sender", msg.Sender.ID,
			"chat", msg.Chat.ID,
		)
		return nil
	}

	if err := t.inbox(ctx, msg); err != nil {
		t.tracker.Forget(ctx, update.UpdateID)
		return fmt.Errorf("telegram: publish inbound: %w", err)
	}

	t.countInbound(metrics.ResultAdmitted)
	if t.mets != nil {
		t.mets.Sessions.Set(float64(t.tracker.SessionCount()))
	}
	return nil
}
