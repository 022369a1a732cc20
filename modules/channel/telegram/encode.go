package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flemzord/tgbridge/internal/channel"
	"github.com/flemzord/tgbridge/internal/delivery"
	"github.com/flemzord/tgbridge/pkg/message"
)

// sendMessagePayload is the request body for the sendMessage method.
type sendMessagePayload struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID      int    `json:"reply_to_message_id,omitempty"`
	MessageThreadID       int    `json:"message_thread_id,omitempty"`
}

// mediaPayload covers sendPhoto, sendAudio, sendVoice, and sendDocument;
// the method-specific field name is selected by the key fields below.
type mediaPayload struct {
	ChatID              int64  `json:"chat_id"`
	Photo               string `json:"photo,omitempty"`
	Audio               string `json:"audio,omitempty"`
	Voice               string `json:"voice,omitempty"`
	Document            string `json:"document,omitempty"`
	Caption             string `json:"caption,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID    int    `json:"reply_to_message_id,omitempty"`
	MessageThreadID     int    `json:"message_thread_id,omitempty"`
}

// locationPayload is the request body for the sendLocation method.
type locationPayload struct {
	ChatID              int64   `json:"chat_id"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	DisableNotification bool    `json:"disable_notification,omitempty"`
	ReplyToMessageID    int     `json:"reply_to_message_id,omitempty"`
	MessageThreadID     int     `json:"message_thread_id,omitempty"`
}

// contactPayload is the request body for the sendContact method.
type contactPayload struct {
	ChatID              int64  `json:"chat_id"`
	PhoneNumber         string `json:"phone_number"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID    int    `json:"reply_to_message_id,omitempty"`
	MessageThreadID     int    `json:"message_thread_id,omitempty"`
}

// encoder translates outbound messages into ordered Bot API requests. It
// implements delivery.Encoder.
type encoder struct {
	maxMessageLength int
}

var _ delivery.Encoder = (*encoder)(nil)

// Encode implements delivery.Encoder. Text longer than the provider limit
// splits into several sendMessage requests; every segment type outside the
// closed set fails the whole message before anything is sent.
func (e *encoder) Encode(msg message.OutboundMessage) ([]delivery.Request, error) {
	chatID, err := strconv.ParseInt(msg.Chat.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat ID %q: %w", msg.Chat.ID, err)
	}

	var hints message.OutboundHints
	if msg.Hints != nil {
		hints = *msg.Hints
	}
	replyTo := parseIntField(msg.ReplyToID)
	threadID := parseIntField(msg.ThreadID)

	limit := e.maxMessageLength
	if limit <= 0 {
		limit = 4096
	}

	var requests []delivery.Request
	for i, seg := range msg.Segments {
		switch seg.Type {
		case message.SegmentText:
			for _, part := range channel.SplitText(seg.Text, limit) {
				requests = append(requests, delivery.Request{
					Method: "sendMessage",
					Payload: sendMessagePayload{
						ChatID:                chatID,
						Text:                  part,
						ParseMode:             hints.ParseMode,
						DisableWebPagePreview: hints.DisablePreview,
						DisableNotification:   hints.DisableNotification,
						ReplyToMessageID:      replyTo,
						MessageThreadID:       threadID,
					},
				})
			}

		case message.SegmentImage:
			requests = append(requests, delivery.Request{
				Method: "sendPhoto",
				Payload: mediaPayload{
					ChatID:              chatID,
					Photo:               seg.URL,
					Caption:             seg.Caption,
					ParseMode:           hints.ParseMode,
					DisableNotification: hints.DisableNotification,
					ReplyToMessageID:    replyTo,
					MessageThreadID:     threadID,
				},
			})

		case message.SegmentAudio:
			method := "sendAudio"
			payload := mediaPayload{
				ChatID:              chatID,
				Caption:             seg.Caption,
				DisableNotification: hints.DisableNotification,
				ReplyToMessageID:    replyTo,
				MessageThreadID:     threadID,
			}
			if seg.IsVoice {
				method = "sendVoice"
				payload.Voice = seg.URL
			} else {
				payload.Audio = seg.URL
			}
			requests = append(requests, delivery.Request{Method: method, Payload: payload})

		case message.SegmentFile:
			requests = append(requests, delivery.Request{
				Method: "sendDocument",
				Payload: mediaPayload{
					ChatID:              chatID,
					Document:            seg.URL,
					Caption:             seg.Caption,
					DisableNotification: hints.DisableNotification,
					ReplyToMessageID:    replyTo,
					MessageThreadID:     threadID,
				},
			})

		case message.SegmentLocation:
			var lat, lon float64
			if seg.Lat != nil {
				lat = *seg.Lat
			}
			if seg.Lon != nil {
				lon = *seg.Lon
			}
			requests = append(requests, delivery.Request{
				Method: "sendLocation",
				Payload: locationPayload{
					ChatID:              chatID,
					Latitude:            lat,
					Longitude:           lon,
					DisableNotification: hints.DisableNotification,
					ReplyToMessageID:    replyTo,
					MessageThreadID:     threadID,
				},
			})

		case message.SegmentContact:
			first, last := splitName(seg.Name)
			requests = append(requests, delivery.Request{
				Method: "sendContact",
				Payload: contactPayload{
					ChatID:              chatID,
					PhoneNumber:         seg.Phone,
					FirstName:           first,
					LastName:            last,
					DisableNotification: hints.DisableNotification,
					ReplyToMessageID:    replyTo,
					MessageThreadID:     threadID,
				},
			})

		default:
			return nil, fmt.Errorf("telegram: segment %d: type %q cannot be sent", i, seg.Type)
		}
	}

	if len(requests) == 0 {
		return nil, fmt.Errorf("telegram: message %s has no sendable content", msg.ID)
	}
	return requests, nil
}

// parseIntField parses an optional numeric string field, returning 0 for
// empty or malformed values.
func parseIntField(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// splitName splits a display name into Telegram's first/last name fields.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	parts := strings.SplitN(name, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
