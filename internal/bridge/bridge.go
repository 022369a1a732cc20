// Package bridge connects the message bus to the provider channels. It
// publishes admitted inbound messages onto the bus, drains the bus's
// outbound queue through each channel's delivery dispatcher, reports
// delivery status back to the host, and schedules the periodic maintenance
// the other modules need.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/tgbridge/internal/bus"
	"github.com/flemzord/tgbridge/internal/channel"
	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/cron"
	"github.com/flemzord/tgbridge/internal/dedup"
	"github.com/flemzord/tgbridge/internal/delivery"
	"github.com/flemzord/tgbridge/internal/heartbeat"
	"github.com/flemzord/tgbridge/internal/metrics"
	"github.com/flemzord/tgbridge/internal/tracing"
	"github.com/flemzord/tgbridge/pkg/message"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Bridge{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Bridge)(nil)
	_ core.Provisioner  = (*Bridge)(nil)
	_ core.Validator    = (*Bridge)(nil)
	_ core.Starter      = (*Bridge)(nil)
	_ core.Stopper      = (*Bridge)(nil)

	_ heartbeat.StatsSource = (*Bridge)(nil)
)

// tracked is implemented by channels that keep dedup state the bridge
// should sweep periodically.
type tracked interface {
	Tracker() *dedup.Tracker
}

// Bridge is the module gluing bus, channels, metrics, and maintenance.
type Bridge struct {
	config    Config
	logger    *slog.Logger
	appCtx    *core.AppContext
	bus       bus.Bus
	registry  *channel.Registry
	scheduler *cron.Scheduler
	mets      *metrics.Metrics
	reporter  *heartbeat.Reporter
	journal   delivery.Journal

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// ModuleInfo implements core.Module.
func (b *Bridge) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "bridge",
		New: func() core.Module { return &Bridge{} },
	}
}

// Configure implements core.Configurable.
func (b *Bridge) Configure(node *yaml.Node) error {
	if err := node.Decode(&b.config); err != nil {
		return fmt.Errorf("bridge: decode config: %w", err)
	}
	b.config.defaults()
	return nil
}

// Provision implements core.Provisioner. The metrics registry lives here so
// every module can resolve it, wherever it falls in the load order.
func (b *Bridge) Provision(ctx *core.AppContext) error {
	b.config.defaults()
	b.appCtx = ctx
	b.logger = ctx.Logger
	b.registry = channel.NewRegistry()
	b.scheduler = cron.NewScheduler(ctx.Logger)
	b.mets = metrics.New()

	ctx.RegisterService("metrics", b.mets)
	ctx.RegisterService("channel.registry", b.registry)
	return nil
}

// Validate implements core.Validator.
func (b *Bridge) Validate() error {
	if b.config.Workers <= 0 {
		return fmt.Errorf("bridge: workers must be positive, got %d", b.config.Workers)
	}
	return nil
}

// Start implements core.Starter. It binds the bus, discovers the loaded
// channel modules, wires their inbox and delivery events, and starts the
// outbound workers and the maintenance scheduler.
func (b *Bridge) Start() error {
	svc, ok := b.appCtx.Service("bus")
	if !ok {
		return errors.New("bridge: bus service not found (is a bus module loaded?)")
	}
	busSvc, ok := svc.(bus.Bus)
	if !ok {
		return errors.New("bridge: bus service has unexpected type")
	}
	b.bus = busSvc

	// Resolve the durable journal first so bindChannels attaches it before
	// any outbound worker drains a message.
	if svc, ok := b.appCtx.Service("delivery.journal"); ok {
		if journal, ok := svc.(delivery.Journal); ok {
			b.journal = journal
		}
	}

	if err := b.bindChannels(); err != nil {
		return err
	}
	if len(b.registry.Names()) == 0 {
		return errors.New("bridge: no channel modules loaded")
	}

	b.runCtx, b.cancel = context.WithCancel(context.Background())

	for i := 0; i < b.config.Workers; i++ {
		b.wg.Add(1)
		go b.outboundLoop()
	}

	if err := b.registerMaintenance(); err != nil {
		return err
	}
	if err := b.scheduler.Start(); err != nil {
		return err
	}

	if b.config.Heartbeat.URL != "" {
		reporter, err := heartbeat.New(b.config.Heartbeat, b, b.logger)
		if err != nil {
			return err
		}
		if err := reporter.Start(b.runCtx); err != nil {
			return err
		}
		b.reporter = reporter
	}

	b.logger.Info("bridge started",
		"channels", b.registry.Names(),
		"workers", b.config.Workers,
	)
	return nil
}

// bindChannels resolves every loaded channel module and wires it to the bus.
func (b *Bridge) bindChannels() error {
	for _, info := range core.GetModulesByNamespace("channel") {
		svc, ok := b.appCtx.Service(string(info.ID))
		if !ok {
			// Registered in the binary but not loaded by this config.
			continue
		}
		ch, ok := svc.(channel.Channel)
		if !ok {
			return fmt.Errorf("bridge: service %s does not implement channel.Channel", info.ID)
		}
		name := string(info.ID)
		if err := b.registry.Register(name, ch); err != nil {
			return err
		}
		ch.SetInbox(b.publishInbound)
		ch.Dispatcher().OnEvent(b.onDeliveryEvent)
		if b.journal != nil {
			ch.Dispatcher().SetJournal(b.journal)
		}
		b.logger.Info("channel bound", "channel", name)
	}
	return nil
}

// publishInbound is the Inbox shared by every channel.
func (b *Bridge) publishInbound(ctx context.Context, msg message.InboundMessage) error {
	return b.bus.PublishInbound(ctx, msg)
}

// outboundLoop drains the bus until the bridge stops. Route errors are
// terminal for the message; the dispatcher has already reported the failure
// through onDeliveryEvent, except when no channel claims the message.
func (b *Bridge) outboundLoop() {
	defer b.wg.Done()
	for {
		msg, err := b.bus.NextOutbound(b.runCtx)
		if err != nil {
			return
		}
		b.mets.OutboundAttempts.Inc()

		ctx, span := tracing.StartSpan(b.runCtx, "bridge", "outbound.dispatch",
			attribute.String("message.id", msg.ID),
			attribute.String("message.channel", msg.Channel),
		)
		err = b.registry.Route(ctx, msg)
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		if err != nil {
			b.logger.Error("outbound delivery failed",
				"message_id", msg.ID,
				"channel", msg.Channel,
				"error", err,
			)
			if errors.Is(err, channel.ErrUnknownChannel) {
				b.reportStatus(bus.StatusEvent{
					MessageID: msg.ID,
					Status:    bus.StatusFailed,
					Reason:    err.Error(),
				})
			}
		}
	}
}

// onDeliveryEvent translates dispatcher progress into bus status reports
// and metrics.
func (b *Bridge) onDeliveryEvent(ev delivery.Event) {
	switch ev.Kind {
	case delivery.EventRetrying:
		b.mets.OutboundRetries.Inc()
		b.reportStatus(bus.StatusEvent{
			MessageID: ev.MessageID,
			Status:    bus.StatusRetrying,
			Attempts:  ev.Attempt,
			Reason:    ev.Reason,
		})
	case delivery.EventDelivered:
		b.mets.OutboundDelivered.Inc()
		b.reportStatus(bus.StatusEvent{
			MessageID: ev.MessageID,
			Status:    bus.StatusDelivered,
			Attempts:  ev.Attempt,
		})
	case delivery.EventFailed:
		b.mets.OutboundFailed.Inc()
		b.reportStatus(bus.StatusEvent{
			MessageID: ev.MessageID,
			Status:    bus.StatusFailed,
			Attempts:  ev.Attempt,
			Reason:    ev.Reason,
		})
	}
}

func (b *Bridge) reportStatus(ev bus.StatusEvent) {
	if err := b.bus.ReportStatus(b.runCtx, ev); err != nil {
		b.logger.Warn("status report dropped",
			"message_id", ev.MessageID,
			"status", string(ev.Status),
			"error", err,
		)
	}
}

// registerMaintenance schedules dedup sweeps per tracked channel and the
// journal prune.
func (b *Bridge) registerMaintenance() error {
	for _, name := range b.registry.Names() {
		ch, _ := b.registry.Get(name)
		tc, ok := ch.(tracked)
		if !ok {
			continue
		}
		tracker := tc.Tracker()
		job := cron.FuncJob{
			JobName: "dedup_sweep:" + name,
			Expr:    b.config.SweepSchedule,
			Fn: func(ctx context.Context) error {
				seen, sessions, err := tracker.Sweep(ctx)
				if seen > 0 || sessions > 0 {
					b.logger.Info("dedup sweep",
						"channel", name,
						"seen_removed", seen,
						"sessions_removed", sessions,
					)
				}
				b.mets.Sessions.Set(float64(tracker.SessionCount()))
				return err
			},
		}
		if err := b.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}

	if b.journal != nil {
		job := cron.FuncJob{
			JobName: "journal_prune",
			Expr:    b.config.JournalPruneSchedule,
			Fn: func(ctx context.Context) error {
				removed, err := b.journal.Prune(ctx, time.Now().Add(-b.config.JournalRetention))
				if removed > 0 {
					b.logger.Info("journal pruned", "removed", removed)
				}
				return err
			},
		}
		if err := b.scheduler.RegisterJob(job); err != nil {
			return err
		}
	}
	return nil
}

// Stats implements heartbeat.StatsSource.
func (b *Bridge) Stats() heartbeat.Stats {
	stats := heartbeat.Stats{Channels: b.registry.Names()}
	for _, name := range stats.Channels {
		ch, _ := b.registry.Get(name)
		if tc, ok := ch.(tracked); ok {
			stats.Sessions += tc.Tracker().SessionCount()
		}
	}
	return stats
}

// Stop implements core.Stopper.
func (b *Bridge) Stop(ctx context.Context) error {
	b.logger.Info("bridge stopping")
	if b.reporter != nil {
		if err := b.reporter.Stop(ctx); err != nil && !errors.Is(err, heartbeat.ErrNotStarted) {
			b.logger.Warn("heartbeat stop", "error", err)
		}
	}
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	if b.scheduler != nil {
		return b.scheduler.Stop(ctx)
	}
	return nil
}

// Registry exposes the channel registry, mainly for tests.
func (b *Bridge) Registry() *channel.Registry { return b.registry }
