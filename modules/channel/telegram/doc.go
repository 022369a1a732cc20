// Package telegram implements the Telegram Bot API channel. It receives
// updates over long polling or a webhook, normalizes them into inbound
// messages, and encodes outbound messages into Bot API calls executed by
// the channel's delivery dispatcher.
package telegram
