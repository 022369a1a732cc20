package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Sentinel errors a WebhookHandler can return to control the HTTP status.
// Anything else maps to 500, which makes the provider redeliver; the dedup
// layer absorbs the resulting duplicates.
var (
	// ErrBadRequest maps to 400: the payload is malformed and redelivery
	// cannot help.
	ErrBadRequest = errors.New("gateway: bad request")
	// ErrUnauthorized maps to 401: the request failed source validation.
	ErrUnauthorized = errors.New("gateway: unauthorized")
)

// WebhookHandler processes one webhook delivery for a source.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, source string, body []byte, headers http.Header) error
}

// WebhookDispatcher routes POST /webhooks/{source} to the handler a channel
// module registered for that source.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]WebhookHandler
	logger   *slog.Logger
}

// NewWebhookDispatcher creates a ready-to-use dispatcher.
func NewWebhookDispatcher(logger *slog.Logger) *WebhookDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookDispatcher{
		handlers: make(map[string]WebhookHandler),
		logger:   logger,
	}
}

// Register adds a handler for the given source.
func (d *WebhookDispatcher) Register(source string, h WebhookHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[source] = h
}

// ServeHTTP implements http.Handler.
func (d *WebhookDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := chi.URLParam(r, "source")
	if source == "" {
		http.Error(w, "missing source", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	d.mu.RLock()
	handler, ok := d.handlers[source]
	d.mu.RUnlock()

	if !ok {
		// 200 so the provider stops redelivering to a source that was
		// removed from the config.
		d.logger.Warn("webhook received for unregistered source", "source", source)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true,"warning":"no handler registered"}`))
		return
	}

	if err := handler.HandleWebhook(r.Context(), source, body, r.Header); err != nil {
		switch {
		case errors.Is(err, ErrBadRequest):
			d.logger.Warn("malformed webhook payload", "source", source, "error", err)
			http.Error(w, "bad request", http.StatusBadRequest)
		case errors.Is(err, ErrUnauthorized):
			d.logger.Warn("webhook failed validation", "source", source)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		default:
			d.logger.Error("webhook handler failed", "source", source, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}
