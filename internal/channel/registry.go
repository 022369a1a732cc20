package channel

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flemzord/tgbridge/pkg/message"
)

// Registry maps channel names to live channel modules and routes outbound
// messages to the owning channel's dispatcher.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds a channel under its name.
func (r *Registry) Register(name string, ch Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.channels[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	r.channels[name] = ch
	return nil
}

// Get returns the channel registered under name.
func (r *Registry) Get(name string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[name]
	return ch, ok
}

// Names returns the registered channel names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Route delivers an outbound message through the channel it names.
func (r *Registry) Route(ctx context.Context, msg message.OutboundMessage) error {
	ch, ok := r.Get(msg.Channel)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, msg.Channel)
	}
	return ch.Dispatcher().Dispatch(ctx, msg)
}
