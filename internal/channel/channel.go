// Package channel defines the contract between provider modules and the
// rest of the bridge. A channel normalizes provider updates into inbound
// messages and owns a delivery pipeline for the outbound direction.
package channel

import (
	"context"

	"github.com/flemzord/tgbridge/internal/core"
	"github.com/flemzord/tgbridge/internal/delivery"
	"github.com/flemzord/tgbridge/pkg/message"
)

// Inbox is the callback a channel invokes for each admitted inbound message.
// Channels call it from their receive loop; implementations must be safe for
// concurrent use.
type Inbox func(ctx context.Context, msg message.InboundMessage) error

// Channel is a provider-facing module. SetInbox must be called before the
// module starts; Dispatcher is valid after provisioning.
type Channel interface {
	core.Module
	Dispatcher() *delivery.Dispatcher
	SetInbox(Inbox)
}
