package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/pkg/message"
	"gopkg.in/yaml.v3"
)

func init() {
	core.RegisterModule(&Memory{})
}

// Compile-time interface guards.
var (
	_ Bus               = (*Memory)(nil)
	_ core.Configurable = (*Memory)(nil)
	_ core.Provisioner  = (*Memory)(nil)
	_ core.Validator    = (*Memory)(nil)
)

// MemoryConfig holds the in-process bus configuration.
type MemoryConfig struct {
	// QueueSize is the capacity of each queue. Senders block once a queue
	// is full, which applies natural backpressure.
	QueueSize int `yaml:"queue_size"`
}

func (c *MemoryConfig) defaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
}

// Memory is a bounded, in-process Bus backed by buffered channels. It
// implements the module lifecycle and registers itself as the "bus" service.
type Memory struct {
	config   MemoryConfig
	logger   *slog.Logger
	inbound  chan message.InboundMessage
	outbound chan message.OutboundMessage
	statuses chan StatusEvent
}

// NewMemory creates a standalone in-process bus, mainly for tests.
func NewMemory(queueSize int) *Memory {
	m := &Memory{config: MemoryConfig{QueueSize: queueSize}}
	m.config.defaults()
	m.init()
	return m
}

func (m *Memory) init() {
	m.inbound = make(chan message.InboundMessage, m.config.QueueSize)
	m.outbound = make(chan message.OutboundMessage, m.config.QueueSize)
	m.statuses = make(chan StatusEvent, m.config.QueueSize)
}

// ModuleInfo implements core.Module.
func (m *Memory) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "bus.memory",
		New: func() core.Module { return &Memory{} },
	}
}

// Configure implements core.Configurable.
func (m *Memory) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("bus: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Memory) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	m.init()
	ctx.RegisterService("bus", m)
	return nil
}

// Validate implements core.Validator.
func (m *Memory) Validate() error {
	if m.config.QueueSize <= 0 {
		return fmt.Errorf("bus: queue_size must be positive, got %d", m.config.QueueSize)
	}
	return nil
}

// PublishInbound implements Bus.
func (m *Memory) PublishInbound(ctx context.Context, msg message.InboundMessage) error {
	select {
	case m.inbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextInbound implements Bus.
func (m *Memory) NextInbound(ctx context.Context) (message.InboundMessage, error) {
	select {
	case msg := <-m.inbound:
		return msg, nil
	case <-ctx.Done():
		return message.InboundMessage{}, ctx.Err()
	}
}

// EnqueueOutbound implements Bus.
func (m *Memory) EnqueueOutbound(ctx context.Context, msg message.OutboundMessage) error {
	select {
	case m.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextOutbound implements Bus.
func (m *Memory) NextOutbound(ctx context.Context) (message.OutboundMessage, error) {
	select {
	case msg := <-m.outbound:
		return msg, nil
	case <-ctx.Done():
		return message.OutboundMessage{}, ctx.Err()
	}
}

// ReportStatus implements Bus.
func (m *Memory) ReportStatus(ctx context.Context, ev StatusEvent) error {
	select {
	case m.statuses <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NextStatus implements Bus.
func (m *Memory) NextStatus(ctx context.Context) (StatusEvent, error) {
	select {
	case ev := <-m.statuses:
		return ev, nil
	case <-ctx.Done():
		return StatusEvent{}, ctx.Err()
	}
}
