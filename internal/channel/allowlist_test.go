package channel

import (
	"testing"

	"github.com/flemzord/tgbridge/pkg/message"
)

func TestAllowlistEmptyAllowsAll(t *testing.T) {
	var a Allowlist
	if !a.Allowed(message.Chat{ID: "1"}, message.Sender{Username: "anyone"}) {
		t.Error("empty allowlist must allow everyone")
	}
}

func TestAllowlistChatID(t *testing.T) {
	a := Allowlist{ChatIDs: []string{"-100123", "42"}}

	if !a.Allowed(message.Chat{ID: "42"}, message.Sender{}) {
		t.Error("listed chat rejected")
	}
	if a.Allowed(message.Chat{ID: "7"}, message.Sender{}) {
		t.Error("unlisted chat allowed")
	}
}

func TestAllowlistUsername(t *testing.T) {
	a := Allowlist{Usernames: []string{"@Alice", "bob"}}

	tests := []struct {
		username string
		want     bool
	}{
		{"alice", true},
		{"@ALICE", true},
		{"Bob", true},
		{"mallory", false},
		{"", false},
	}
	for _, tt := range tests {
		got := a.Allowed(message.Chat{ID: "1"}, message.Sender{Username: tt.username})
		if got != tt.want {
			t.Errorf("Allowed(username=%q) = %v, want %v", tt.username, got, tt.want)
		}
	}
}
