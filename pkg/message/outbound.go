package message

import "github.com/google/uuid"

// OutboundMessage is a normalized message to be delivered through a channel.
// ID identifies the message across dispatch retries: a re-dispatch of the
// same ID must not produce a duplicate delivery once its outcome is known.
type OutboundMessage struct {
	ID        string            `json:"id"`
	Channel   string            `json:"channel"`
	Chat      Chat              `json:"chat"`
	ThreadID  string            `json:"thread_id,omitempty"`
	ReplyToID string            `json:"reply_to_id,omitempty"`
	Segments  []Segment         `json:"segments"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Hints     *OutboundHints    `json:"hints,omitempty"`
}

// OutboundHints carries optional delivery hints for channels.
// Zero value means no hints are set.
type OutboundHints struct {
	DisablePreview      bool   `json:"disable_preview,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
}

// NewTextMessage creates an outbound message with a generated ID and a
// single text segment.
func NewTextMessage(channel string, chat Chat, text string) OutboundMessage {
	return OutboundMessage{
		ID:       uuid.NewString(),
		Channel:  channel,
		Chat:     chat,
		Segments: []Segment{NewTextSegment(text)},
	}
}

// ConversationKey returns the stable key grouping all messages of one chat.
func (m *OutboundMessage) ConversationKey() string {
	return m.Chat.ID
}

// TextContent returns the concatenated text of all text segments.
func (m *OutboundMessage) TextContent() string {
	return textContent(m.Segments)
}

// HasMedia reports whether the message contains media segments.
func (m *OutboundMessage) HasMedia() bool {
	return hasMedia(m.Segments)
}
