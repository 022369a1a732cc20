package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

type recordingHandler struct {
	source string
	body   []byte
	err    error
}

func (h *recordingHandler) HandleWebhook(_ context.Context, source string, body []byte, _ http.Header) error {
	h.source = source
	h.body = body
	return h.err
}

func dispatchTestRouter(d *WebhookDispatcher) http.Handler {
	r := chi.NewRouter()
	r.Post("/webhooks/{source}", d.ServeHTTP)
	return r
}

func postWebhook(t *testing.T, router http.Handler, source, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+source, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatch(t *testing.T) {
	d := NewWebhookDispatcher(slog.New(slog.DiscardHandler))
	h := &recordingHandler{}
	d.Register("telegram", h)
	router := dispatchTestRouter(d)

	rec := postWebhook(t, router, "telegram", `{"update_id":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h.source != "telegram" {
		t.Errorf("source = %q, want telegram", h.source)
	}
	if string(h.body) != `{"update_id":1}` {
		t.Errorf("body = %q", h.body)
	}
}

func TestWebhookUnregisteredSourceReturns200(t *testing.T) {
	d := NewWebhookDispatcher(slog.New(slog.DiscardHandler))
	router := dispatchTestRouter(d)

	rec := postWebhook(t, router, "nope", `{}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (stop provider redelivery)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no handler registered") {
		t.Errorf("body = %q, want warning", rec.Body.String())
	}
}

func TestWebhookErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"malformed payload", fmt.Errorf("%w: bad json", ErrBadRequest), http.StatusBadRequest},
		{"failed validation", ErrUnauthorized, http.StatusUnauthorized},
		{"internal failure", fmt.Errorf("bus unavailable"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewWebhookDispatcher(slog.New(slog.DiscardHandler))
			d.Register("telegram", &recordingHandler{err: tt.err})

			rec := postWebhook(t, dispatchTestRouter(d), "telegram", `{}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	d := NewWebhookDispatcher(slog.New(slog.DiscardHandler))
	req := httptest.NewRequest(http.MethodGet, "/webhooks/telegram", nil)
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
