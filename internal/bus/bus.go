// Package bus defines the boundary to the host message bus. The bus itself
// is external infrastructure; tgbridge consumes it through the Bus interface
// only, and ships an in-process implementation for embedding and tests.
package bus

import (
	"context"

	"github.com/flemzord/tgbridge/pkg/message"
)

// Status is the terminal or intermediate delivery state reported for an
// outbound message.
type Status string

const (
	// StatusDelivered means the provider accepted the message.
	StatusDelivered Status = "delivered"
	// StatusRetrying means a transient failure occurred and another attempt
	// is scheduled.
	StatusRetrying Status = "retrying"
	// StatusFailed means delivery failed permanently and will not be retried.
	StatusFailed Status = "failed"
)

// StatusEvent reports the delivery state of one outbound message.
type StatusEvent struct {
	MessageID string `json:"message_id"`
	Status    Status `json:"status"`
	Attempts  int    `json:"attempts,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Bus is the transport's view of the host message bus.
//
// PublishInbound hands an admitted, normalized inbound message to the host.
// EnqueueOutbound submits a message for delivery (host side). NextOutbound
// blocks until an outbound message is available or the context is cancelled.
// ReportStatus pushes a delivery status back to the host; NextStatus is the
// host-side consumer of those reports.
type Bus interface {
	PublishInbound(ctx context.Context, msg message.InboundMessage) error
	NextInbound(ctx context.Context) (message.InboundMessage, error)

	EnqueueOutbound(ctx context.Context, msg message.OutboundMessage) error
	NextOutbound(ctx context.Context) (message.OutboundMessage, error)

	ReportStatus(ctx context.Context, ev StatusEvent) error
	NextStatus(ctx context.Context) (StatusEvent, error)
}
