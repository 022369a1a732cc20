package telegram

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/flemzord/tgbridge/internal/gateway"
)

func TestWebhookSecretValidation(t *testing.T) {
	called := false
	r := NewWebhookReceiver(func(context.Context, *Update) error {
		called = true
		return nil
	}, "s3cret", nil)

	headers := http.Header{}
	headers.Set(secretTokenHeader, "wrong")
	err := r.HandleWebhook(context.Background(), "telegram", []byte(`{"update_id":1}`), headers)
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
	if called {
		t.Error("handler must not run on secret mismatch")
	}

	headers.Set(secretTokenHeader, "s3cret")
	if err := r.HandleWebhook(context.Background(), "telegram", []byte(`{"update_id":1}`), headers); err != nil {
		t.Fatalf("valid secret: %v", err)
	}
	if !called {
		t.Error("handler should run with valid secret")
	}
}

func TestWebhookMalformedJSON(t *testing.T) {
	malformedCount := 0
	r := NewWebhookReceiver(func(context.Context, *Update) error {
		t.Error("handler must not run for malformed payload")
		return nil
	}, "", func() { malformedCount++ })

	err := r.HandleWebhook(context.Background(), "telegram", []byte(`{not json`), http.Header{})
	if !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
	if malformedCount != 1 {
		t.Errorf("malformed count = %d, want 1", malformedCount)
	}
}

func TestWebhookPassesUpdate(t *testing.T) {
	var got *Update
	r := NewWebhookReceiver(func(_ context.Context, u *Update) error {
		got = u
		return nil
	}, "", nil)

	body := []byte(`{"update_id":7,"message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"hi"}}`)
	if err := r.HandleWebhook(context.Background(), "telegram", body, http.Header{}); err != nil {
		t.Fatalf("HandleWebhook() error: %v", err)
	}
	if got == nil || got.UpdateID != 7 || got.Message.Text != "hi" {
		t.Errorf("update = %+v", got)
	}
}

// A syntactically valid update missing its chat identifier must come back
// as a 400, not a 500 that Telegram would keep redelivering.
func TestWebhookMalformedUpdateRejected(t *testing.T) {
	r := NewWebhookReceiver(func(_ context.Context, u *Update) error {
		_, err := normalizeUpdate(u, testChannel)
		return err
	}, "", nil)

	body := []byte(`{"update_id":5,"message":{"message_id":1,"date":1700000000,"text":"hi"}}`)
	err := r.HandleWebhook(context.Background(), "telegram", body, http.Header{})
	if !errors.Is(err, gateway.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}
	if !errors.Is(err, ErrMalformedUpdate) {
		t.Errorf("err = %v, should keep the malformed-update cause", err)
	}
}

func TestWebhookHandlerErrorPropagates(t *testing.T) {
	boom := errors.New("bus unavailable")
	r := NewWebhookReceiver(func(context.Context, *Update) error { return boom }, "", nil)

	err := r.HandleWebhook(context.Background(), "telegram", []byte(`{"update_id":1}`), http.Header{})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want handler error", err)
	}
}
