// Package message defines the normalized message contract between the
// message bus and provider channels. A message is a flat envelope plus an
// ordered sequence of typed content segments.
package message

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
	// ChatBroadcast is a one-to-many broadcast channel.
	ChatBroadcast ChatType = "broadcast"
)

// SegmentType discriminates the variant stored in a Segment.
type SegmentType string

// Supported segment types. SegmentUnsupported is the degraded fallback for
// provider content that has no internal representation; it carries the raw
// provider type tag so nothing is dropped silently.
const (
	SegmentText        SegmentType = "text"
	SegmentImage       SegmentType = "image"
	SegmentAudio       SegmentType = "audio"
	SegmentFile        SegmentType = "file"
	SegmentLocation    SegmentType = "location"
	SegmentContact     SegmentType = "contact"
	SegmentUnsupported SegmentType = "unsupported"
)

// Sender identifies the author of an inbound message.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	IsBot       bool   `json:"is_bot,omitempty"`
}

// Chat identifies the conversation a message belongs to. Chat.ID is the
// conversation key: it is stable across all messages of one provider chat,
// inbound and outbound alike.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

// IsDirectMessage reports whether the chat is a direct message.
func (c Chat) IsDirectMessage() bool {
	return c.Type == ChatDM
}
