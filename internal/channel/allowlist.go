package channel

import (
	"strings"

	"github.com/flemzord/tgbridge/pkg/message"
)

// Allowlist restricts which chats and senders a channel accepts updates
// from. Empty lists allow everyone.
type Allowlist struct {
	ChatIDs   []string `yaml:"chat_ids"`
	Usernames []string `yaml:"usernames"`
}

// Empty reports whether the allowlist places no restriction.
func (a Allowlist) Empty() bool {
	return len(a.ChatIDs) == 0 && len(a.Usernames) == 0
}

// Allowed reports whether the chat or sender matches the allowlist.
// Usernames are compared case-insensitively and with any leading "@"
// stripped.
func (a Allowlist) Allowed(chat message.Chat, sender message.Sender) bool {
	if a.Empty() {
		return true
	}
	for _, id := range a.ChatIDs {
		if id == chat.ID {
			return true
		}
	}
	name := strings.TrimPrefix(strings.ToLower(sender.Username), "@")
	if name == "" {
		return false
	}
	for _, u := range a.Usernames {
		if strings.TrimPrefix(strings.ToLower(u), "@") == name {
			return true
		}
	}
	return false
}
