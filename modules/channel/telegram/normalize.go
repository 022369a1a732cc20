package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/flemzord/tgbridge/pkg/message"
)

// errNoMessage marks updates of a type the bridge does not carry (e.g. a
// bare poll update). They are skipped, not rejected.
var errNoMessage = errors.New("telegram: update contains no message")

// ErrMalformedUpdate marks updates missing a required identifier (update_id
// or chat). They are logged and dropped, never forwarded to the bus; the
// webhook receiver answers them with 400.
var ErrMalformedUpdate = errors.New("telegram: malformed update")

// fileIDRef returns a reference URI for a Telegram file_id. This is not a
// download URL; consumers resolve it with getFile when they need the bytes.
func fileIDRef(fileID string) string {
	return "tg://file_id/" + fileID
}

// normalizeUpdate transforms a Telegram update into a normalized inbound
// message. The raw update is attached verbatim for consumers that need
// provider-specific fields.
func normalizeUpdate(update *Update, channelName string) (message.InboundMessage, error) {
	if update.UpdateID == 0 {
		return message.InboundMessage{}, fmt.Errorf("%w: missing update_id", ErrMalformedUpdate)
	}
	msg := pickMessage(update)
	if msg == nil {
		return message.InboundMessage{}, fmt.Errorf("%w: update %d", errNoMessage, update.UpdateID)
	}
	if msg.Chat.ID == 0 {
		return message.InboundMessage{}, fmt.Errorf("%w: update %d has no chat identifier", ErrMalformedUpdate, update.UpdateID)
	}

	raw, err := json.Marshal(update)
	if err != nil {
		return message.InboundMessage{}, fmt.Errorf("telegram: marshal update: %w", err)
	}

	inbound := message.InboundMessage{
		ID:        strconv.Itoa(msg.MessageID),
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		Channel:   channelName,
		Sender:    normalizeSender(msg),
		Chat:      normalizeChat(msg.Chat),
		Raw:       raw,
		Metadata: map[string]string{
			"telegram_update_id":  strconv.FormatInt(update.UpdateID, 10),
			"telegram_message_id": strconv.Itoa(msg.MessageID),
		},
	}

	if msg.MessageThreadID != 0 {
		inbound.ThreadID = strconv.Itoa(msg.MessageThreadID)
	}
	if msg.ReplyToMessage != nil {
		inbound.ReplyToID = strconv.Itoa(msg.ReplyToMessage.MessageID)
	}
	if update.EditedMessage != nil {
		inbound.Metadata["telegram_edited"] = "true"
	}

	inbound.Segments = normalizeSegments(msg)
	return inbound, nil
}

// pickMessage returns the carried message, checking Message, EditedMessage,
// and ChannelPost in order.
func pickMessage(update *Update) *Message {
	if update.Message != nil {
		return update.Message
	}
	if update.EditedMessage != nil {
		return update.EditedMessage
	}
	return update.ChannelPost
}

// normalizeSender maps the message author. Channel posts carry no "from"
// user; the chat itself stands in as the sender so the conversation still
// has a stable identity.
func normalizeSender(msg *Message) message.Sender {
	if msg.From == nil {
		return message.Sender{
			ID:          strconv.FormatInt(msg.Chat.ID, 10),
			Username:    msg.Chat.Username,
			DisplayName: msg.Chat.Title,
		}
	}
	displayName := msg.From.FirstName
	if msg.From.LastName != "" {
		displayName += " " + msg.From.LastName
	}
	return message.Sender{
		ID:          strconv.FormatInt(msg.From.ID, 10),
		Username:    msg.From.Username,
		DisplayName: displayName,
		IsBot:       msg.From.IsBot,
	}
}

// normalizeChat maps a Telegram chat.
func normalizeChat(chat Chat) message.Chat {
	return message.Chat{
		ID:    strconv.FormatInt(chat.ID, 10),
		Type:  mapChatType(chat.Type),
		Title: chat.Title,
	}
}

// mapChatType converts Telegram chat type strings.
func mapChatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "group", "supergroup":
		return message.ChatGroup
	case "channel":
		return message.ChatBroadcast
	default:
		return message.ChatGroup
	}
}

// normalizeSegments builds content segments from a Telegram message. Media
// references use tg://file_id/ URIs. Content the closed segment set cannot
// express becomes an unsupported segment carrying the raw payload, so the
// update is still admitted and counted.
func normalizeSegments(msg *Message) []message.Segment {
	var segments []message.Segment

	switch {
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		img := message.NewImageSegment(fileIDRef(largest.FileID), "")
		img.Caption = msg.Caption
		segments = append(segments, img)
	case msg.Audio != nil:
		segments = append(segments, message.NewAudioSegment(fileIDRef(msg.Audio.FileID), msg.Audio.MIMEType, false))
	case msg.Voice != nil:
		segments = append(segments, message.NewAudioSegment(fileIDRef(msg.Voice.FileID), msg.Voice.MIMEType, true))
	case msg.Document != nil:
		segments = append(segments, message.NewFileSegment(fileIDRef(msg.Document.FileID), msg.Document.MIMEType, msg.Document.FileName))
	case msg.Location != nil:
		segments = append(segments, message.NewLocationSegment(msg.Location.Latitude, msg.Location.Longitude))
	case msg.Contact != nil:
		name := msg.Contact.FirstName
		if msg.Contact.LastName != "" {
			name += " " + msg.Contact.LastName
		}
		segments = append(segments, message.NewContactSegment(msg.Contact.PhoneNumber, name))
	case msg.Sticker != nil:
		raw, _ := json.Marshal(msg.Sticker)
		segments = append(segments, message.NewUnsupportedSegment("sticker", raw))
	default:
		if tag, raw, ok := unknownContent(msg); ok {
			segments = append(segments, message.NewUnsupportedSegment(tag, raw))
		}
	}

	// Captions ride along as a text segment after the media, except for
	// photos where the caption is part of the image segment.
	if msg.Caption != "" && len(msg.Photo) == 0 {
		segments = append(segments, message.NewTextSegment(msg.Caption))
	}

	if len(segments) == 0 && msg.Text != "" {
		segments = append(segments, message.NewTextSegment(msg.Text))
	}
	return segments
}

// annotationKeys are message keys that annotate content rather than carry
// it. They never become an unsupported segment on their own.
var annotationKeys = map[string]struct{}{
	"entities":              {},
	"caption_entities":      {},
	"edit_date":             {},
	"sender_chat":           {},
	"forward_origin":        {},
	"forward_from":          {},
	"forward_from_chat":     {},
	"forward_date":          {},
	"forward_signature":     {},
	"forward_sender_name":   {},
	"via_bot":               {},
	"media_group_id":        {},
	"author_signature":      {},
	"has_protected_content": {},
	"link_preview_options":  {},
	"is_topic_message":      {},
	"is_automatic_forward":  {},
	"reply_markup":          {},
	"external_reply":        {},
	"quote":                 {},
}

// unknownContent returns the first unmodeled content key of the message (in
// key order, for determinism) with its raw payload.
func unknownContent(msg *Message) (tag string, raw json.RawMessage, ok bool) {
	if len(msg.Extra) == 0 {
		return "", nil, false
	}
	keys := make([]string, 0, len(msg.Extra))
	for key := range msg.Extra {
		if _, skip := annotationKeys[key]; skip {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return "", nil, false
	}
	slices.Sort(keys)
	return keys[0], msg.Extra[keys[0]], true
}
