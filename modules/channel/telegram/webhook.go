package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/flemzord/tgbridge/internal/gateway"
)

// secretTokenHeader is the header Telegram echoes the configured
// secret_token in on every webhook delivery.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookReceiver processes webhook deliveries. It implements
// gateway.WebhookHandler: a bad secret maps to 401, malformed JSON to 400,
// and a processing failure to 500 so Telegram redelivers.
type WebhookReceiver struct {
	handle         func(ctx context.Context, update *Update) error
	secret         string
	countMalformed func()
}

var _ gateway.WebhookHandler = (*WebhookReceiver)(nil)

// NewWebhookReceiver creates a receiver bound to the channel's shared
// update handler.
func NewWebhookReceiver(handle func(ctx context.Context, update *Update) error, secret string, countMalformed func()) *WebhookReceiver {
	return &WebhookReceiver{
		handle:         handle,
		secret:         secret,
		countMalformed: countMalformed,
	}
}

// HandleWebhook implements gateway.WebhookHandler.
func (w *WebhookReceiver) HandleWebhook(ctx context.Context, _ string, body []byte, headers http.Header) error {
	if w.secret != "" {
		token := headers.Get(secretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(w.secret), []byte(token)) != 1 {
			return fmt.Errorf("%w: telegram secret token mismatch", gateway.ErrUnauthorized)
		}
	}

	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		if w.countMalformed != nil {
			w.countMalformed()
		}
		return fmt.Errorf("%w: invalid update JSON: %s", gateway.ErrBadRequest, err)
	}

	if err := w.handle(ctx, &update); err != nil {
		// Updates missing required identifiers are the caller's fault;
		// answering 500 would only make Telegram redeliver them forever.
		if errors.Is(err, ErrMalformedUpdate) {
			return fmt.Errorf("%w: %w", gateway.ErrBadRequest, err)
		}
		return err
	}
	return nil
}
