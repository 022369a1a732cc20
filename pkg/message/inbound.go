package message

import (
	"encoding/json"
	"time"
)

// InboundMessage is the normalized form of one admitted provider update.
// It is created once by a channel's normalizer and never mutated afterwards.
type InboundMessage struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Channel   string            `json:"channel"`
	Sender    Sender            `json:"sender"`
	Chat      Chat              `json:"chat"`
	ThreadID  string            `json:"thread_id,omitempty"`
	ReplyToID string            `json:"reply_to_id,omitempty"`
	Segments  []Segment         `json:"segments"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Raw       json.RawMessage   `json:"raw,omitempty"`
}

// ConversationKey returns the stable key grouping all messages of one chat.
func (m *InboundMessage) ConversationKey() string {
	return m.Chat.ID
}

// TextContent returns the concatenated text of all text segments.
func (m *InboundMessage) TextContent() string {
	return textContent(m.Segments)
}

// HasMedia reports whether the message contains media segments.
func (m *InboundMessage) HasMedia() bool {
	return hasMedia(m.Segments)
}
