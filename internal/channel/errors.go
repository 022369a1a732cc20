package channel

import "errors"

var (
	// ErrUnknownChannel means an outbound message names a channel that is
	// not registered.
	ErrUnknownChannel = errors.New("channel: unknown channel")
	// ErrDuplicateChannel means two modules registered under the same name.
	ErrDuplicateChannel = errors.New("channel: duplicate channel")
	// ErrNotAllowed means the sender or chat is outside the allowlist.
	ErrNotAllowed = errors.New("channel: sender not allowed")
)
