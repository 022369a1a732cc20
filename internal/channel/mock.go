package channel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/delivery"
	"github.com/flemzord/tgbridge/pkg/message"
)

// Mock is an in-process channel for tests. Outbound messages encode to one
// request per message and are recorded instead of sent; Inject simulates an
// inbound provider update.
type Mock struct {
	name string

	mu         sync.Mutex
	sent       []message.OutboundMessage
	sendErr    error
	inbox      Inbox
	dispatcher *delivery.Dispatcher
}

var _ Channel = (*Mock)(nil)

// NewMock creates a mock channel registered under name.
func NewMock(name string) *Mock {
	m := &Mock{name: name}
	cfg := delivery.Config{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Rate:           10000,
		Burst:          10000,
	}
	m.dispatcher = delivery.NewDispatcher(cfg, mockEncoder{}, (*mockSender)(m), nil, nil, slog.New(slog.DiscardHandler))
	return m
}

// ModuleInfo implements core.Module.
func (m *Mock) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID("channel." + m.name),
		New: func() core.Module { return NewMock(m.name) },
	}
}

// Dispatcher implements Channel.
func (m *Mock) Dispatcher() *delivery.Dispatcher { return m.dispatcher }

// SetInbox implements Channel.
func (m *Mock) SetInbox(fn Inbox) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// FailSends makes every outbound send return err. Pass nil to restore
// success.
func (m *Mock) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// Inject delivers a fake inbound message through the registered inbox.
func (m *Mock) Inject(ctx context.Context, msg message.InboundMessage) error {
	m.mu.Lock()
	fn := m.inbox
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, msg)
}

// Sent returns the outbound messages accepted so far.
func (m *Mock) Sent() []message.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]message.OutboundMessage(nil), m.sent...)
}

type mockEncoder struct{}

func (mockEncoder) Encode(msg message.OutboundMessage) ([]delivery.Request, error) {
	return []delivery.Request{{Method: "send", Payload: msg}}, nil
}

// mockSender aliases Mock so the dispatcher can call back into it.
type mockSender Mock

func (s *mockSender) Send(_ context.Context, req delivery.Request) error {
	m := (*Mock)(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, req.Payload.(message.OutboundMessage))
	return nil
}
