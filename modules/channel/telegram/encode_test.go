package telegram

import (
	"strings"
	"testing"

	"github.com/flemzord/tgbridge/pkg/message"
)

func outboundMsg(segments ...message.Segment) message.OutboundMessage {
	return message.OutboundMessage{
		ID:       "m1",
		Channel:  testChannel,
		Chat:     message.Chat{ID: "42", Type: message.ChatDM},
		Segments: segments,
	}
}

func TestEncodeTextMessage(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	reqs, err := e.Encode(outboundMsg(message.NewTextSegment("hello")))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Method != "sendMessage" {
		t.Fatalf("reqs = %+v, want single sendMessage", reqs)
	}
	payload := reqs[0].Payload.(sendMessagePayload)
	if payload.ChatID != 42 || payload.Text != "hello" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestEncodeSplitsLongText(t *testing.T) {
	e := &encoder{maxMessageLength: 10}
	long := strings.Repeat("x", 25)
	reqs, err := e.Encode(outboundMsg(message.NewTextSegment(long)))
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 3 {
		t.Fatalf("reqs = %d, want 3 parts", len(reqs))
	}
	var rebuilt string
	for _, r := range reqs {
		if r.Method != "sendMessage" {
			t.Errorf("method = %q", r.Method)
		}
		rebuilt += r.Payload.(sendMessagePayload).Text
	}
	if rebuilt != long {
		t.Error("split lost content")
	}
}

func TestEncodeMediaMethods(t *testing.T) {
	voice := message.NewAudioSegment("tg://file_id/v", "audio/ogg", true)
	audio := message.NewAudioSegment("https://cdn/x.mp3", "audio/mpeg", false)
	image := message.NewImageSegment("https://cdn/p.jpg", "image/jpeg")
	file := message.NewFileSegment("https://cdn/r.pdf", "application/pdf", "r.pdf")
	loc := message.NewLocationSegment(48.85, 2.35)
	contact := message.NewContactSegment("+123", "Ada Lovelace")

	tests := []struct {
		name       string
		seg        message.Segment
		wantMethod string
	}{
		{"voice", voice, "sendVoice"},
		{"audio", audio, "sendAudio"},
		{"image", image, "sendPhoto"},
		{"file", file, "sendDocument"},
		{"location", loc, "sendLocation"},
		{"contact", contact, "sendContact"},
	}

	e := &encoder{maxMessageLength: 4096}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reqs, err := e.Encode(outboundMsg(tt.seg))
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if len(reqs) != 1 || reqs[0].Method != tt.wantMethod {
				t.Fatalf("method = %q, want %q", reqs[0].Method, tt.wantMethod)
			}
		})
	}
}

func TestEncodeContactSplitsName(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	reqs, err := e.Encode(outboundMsg(message.NewContactSegment("+123", "Ada Lovelace")))
	if err != nil {
		t.Fatal(err)
	}
	payload := reqs[0].Payload.(contactPayload)
	if payload.FirstName != "Ada" || payload.LastName != "Lovelace" {
		t.Errorf("name split = %q / %q", payload.FirstName, payload.LastName)
	}
}

func TestEncodePreservesSegmentOrder(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	reqs, err := e.Encode(outboundMsg(
		message.NewTextSegment("first"),
		message.NewImageSegment("https://cdn/p.jpg", ""),
		message.NewTextSegment("second"),
	))
	if err != nil {
		t.Fatal(err)
	}
	wantMethods := []string{"sendMessage", "sendPhoto", "sendMessage"}
	if len(reqs) != len(wantMethods) {
		t.Fatalf("reqs = %d, want %d", len(reqs), len(wantMethods))
	}
	for i, want := range wantMethods {
		if reqs[i].Method != want {
			t.Errorf("reqs[%d] = %q, want %q", i, reqs[i].Method, want)
		}
	}
}

func TestEncodeAppliesHints(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	msg := outboundMsg(message.NewTextSegment("hi"))
	msg.Hints = &message.OutboundHints{
		DisablePreview:      true,
		DisableNotification: true,
		ParseMode:           "HTML",
	}
	msg.ReplyToID = "8"
	msg.ThreadID = "77"

	reqs, err := e.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}
	payload := reqs[0].Payload.(sendMessagePayload)
	if !payload.DisableWebPagePreview || !payload.DisableNotification || payload.ParseMode != "HTML" {
		t.Errorf("hints not applied: %+v", payload)
	}
	if payload.ReplyToMessageID != 8 || payload.MessageThreadID != 77 {
		t.Errorf("reply/thread not applied: %+v", payload)
	}
}

// An outbound message encoded for the provider and echoed back as an inbound
// update must keep the same conversation key and text content.
func TestEncodeNormalizeRoundTrip(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	out := outboundMsg(message.NewTextSegment("round trip"))

	reqs, err := e.Encode(out)
	if err != nil {
		t.Fatal(err)
	}
	payload := reqs[0].Payload.(sendMessagePayload)

	echo := textUpdate(2001, 7, payload.ChatID, payload.Text)
	in, err := normalizeUpdate(echo, testChannel)
	if err != nil {
		t.Fatalf("normalizeUpdate() error: %v", err)
	}

	if in.Chat.ID != out.Chat.ID {
		t.Errorf("conversation key changed: %q -> %q", out.Chat.ID, in.Chat.ID)
	}
	if len(in.Segments) != 1 || in.Segments[0].Text != "round trip" {
		t.Errorf("content changed: %+v", in.Segments)
	}
}

func TestEncodeUnsupportedSegmentFailsWholeMessage(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	_, err := e.Encode(outboundMsg(
		message.NewTextSegment("ok"),
		message.NewUnsupportedSegment("poll", nil),
	))
	if err == nil {
		t.Fatal("expected error for unsupported segment")
	}
	if !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("error should name the segment type: %v", err)
	}
}

func TestEncodeRejectsBadChatID(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	msg := outboundMsg(message.NewTextSegment("hi"))
	msg.Chat.ID = "not-a-number"
	if _, err := e.Encode(msg); err == nil {
		t.Fatal("expected error for non-numeric chat ID")
	}
}

func TestEncodeRejectsEmptyMessage(t *testing.T) {
	e := &encoder{maxMessageLength: 4096}
	if _, err := e.Encode(outboundMsg()); err == nil {
		t.Fatal("expected error for message without content")
	}
}
