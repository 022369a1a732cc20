// Package delivery implements the outbound send pipeline: rate limiting,
// retry with exponential backoff, and an idempotency journal. It is provider
// agnostic; a channel supplies an Encoder that turns a normalized message
// into provider API calls and a Sender that executes one call.
package delivery

import (
	"context"

	"github.com/flemzord/tgbridge/pkg/message"
)

// Request is one provider API call produced by an Encoder. Method names the
// provider endpoint (for Telegram, "sendMessage", "sendPhoto", ...); Payload
// is the request body, marshaled by the Sender.
type Request struct {
	Method  string
	Payload any
}

// Encoder turns a normalized outbound message into an ordered sequence of
// provider requests. A multi-segment or oversized message encodes to several
// requests which must be delivered in order.
type Encoder interface {
	Encode(msg message.OutboundMessage) ([]Request, error)
}

// Sender executes a single provider request. Implementations must return a
// *Error when they can classify the failure; unclassified errors are treated
// as transient.
type Sender interface {
	Send(ctx context.Context, req Request) error
}
