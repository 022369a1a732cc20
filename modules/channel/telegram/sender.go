package telegram

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/flemzord/tgbridge/internal/delivery"
)

// sender executes encoded requests against the Bot API and classifies
// failures for the dispatcher: 429 and 5xx are transient, other API errors
// are permanent, everything else (network, timeouts) is transient.
type sender struct {
	client *Client
}

var _ delivery.Sender = (*sender)(nil)

// Send implements delivery.Sender.
func (s *sender) Send(ctx context.Context, req delivery.Request) error {
	err := s.client.Call(ctx, req.Method, req.Payload)
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return &delivery.Error{
				Transient:  true,
				RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
				Err:        err,
			}
		}
		return delivery.Permanent(err)
	}

	// Connection-level failure; the request may not have reached the API.
	return delivery.Transient(err)
}
