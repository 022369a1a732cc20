package message

import "testing"

func TestConversationKeyStableAcrossDirections(t *testing.T) {
	chat := Chat{ID: "12345", Type: ChatDM}

	in := InboundMessage{ID: "7", Chat: chat, Segments: []Segment{NewTextSegment("hi")}}
	out := NewTextMessage("channel.telegram", chat, "hello back")

	if in.ConversationKey() != out.ConversationKey() {
		t.Errorf("conversation keys differ: %q vs %q", in.ConversationKey(), out.ConversationKey())
	}
}

func TestNewTextMessageGeneratesID(t *testing.T) {
	a := NewTextMessage("channel.telegram", Chat{ID: "1"}, "x")
	b := NewTextMessage("channel.telegram", Chat{ID: "1"}, "x")

	if a.ID == "" {
		t.Fatal("expected generated ID")
	}
	if a.ID == b.ID {
		t.Errorf("IDs not unique: %q", a.ID)
	}
	if a.TextContent() != "x" {
		t.Errorf("TextContent = %q, want %q", a.TextContent(), "x")
	}
}

func TestChatTypeHelpers(t *testing.T) {
	if !(Chat{Type: ChatDM}).IsDirectMessage() {
		t.Error("ChatDM not reported as direct message")
	}
	if !(Chat{Type: ChatGroup}).IsGroup() {
		t.Error("ChatGroup not reported as group")
	}
	if (Chat{Type: ChatBroadcast}).IsGroup() {
		t.Error("ChatBroadcast reported as group")
	}
}
