package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"
)

func pollerConfig() Config {
	c := Config{PollingTimeout: 0}
	c.defaults()
	c.PollingTimeout = 0
	return c
}

func TestPollerHandlesAndAcknowledges(t *testing.T) {
	var mu sync.Mutex
	var offsets []int64
	calls := 0

	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			var req GetUpdatesRequest
			json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			offsets = append(offsets, req.Offset)
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				okJSON(`[{"update_id":5,"message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"hi"}}]`)(w, r)
				return
			}
			okJSON(`[]`)(w, r)
		},
	})

	handled := make(chan int64, 16)
	p := NewPoller(NewClient(testToken, srv.URL), func(_ context.Context, u *Update) error {
		handled <- u.UpdateID
		return nil
	}, slog.New(slog.DiscardHandler), pollerConfig())
	p.Start()
	defer p.Stop()

	select {
	case id := <-handled:
		if id != 5 {
			t.Fatalf("handled update %d, want 5", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update was never handled")
	}

	// The next poll must acknowledge the update with offset 6.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		acked := false
		for _, off := range offsets {
			if off == 6 {
				acked = true
			}
		}
		mu.Unlock()
		if acked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poller never advanced the offset past the handled update")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPollerRetriesFailedUpdate(t *testing.T) {
	var mu sync.Mutex
	maxOffset := int64(-1)

	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			var req GetUpdatesRequest
			json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			if req.Offset > maxOffset {
				maxOffset = req.Offset
			}
			mu.Unlock()
			okJSON(`[{"update_id":5,"message":{"message_id":1,"chat":{"id":42,"type":"private"},"text":"hi"}}]`)(w, r)
		},
	})

	attempts := make(chan struct{}, 64)
	p := NewPoller(NewClient(testToken, srv.URL), func(context.Context, *Update) error {
		select {
		case attempts <- struct{}{}:
		default:
		}
		return errors.New("bus unavailable")
	}, slog.New(slog.DiscardHandler), pollerConfig())
	p.Start()

	// Wait for at least two attempts at the same update.
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			p.Stop()
			t.Fatal("update was not retried")
		}
	}
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if maxOffset >= 6 {
		t.Errorf("offset advanced to %d despite handler failure", maxOffset)
	}
}

// A malformed update can never succeed on redelivery; the poller has to
// acknowledge it or the loop would refetch it forever.
func TestPollerConsumesMalformedUpdate(t *testing.T) {
	var mu sync.Mutex
	acked := false

	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"getUpdates": func(w http.ResponseWriter, r *http.Request) {
			var req GetUpdatesRequest
			json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			if req.Offset >= 6 {
				acked = true
			}
			mu.Unlock()
			// update 5 has a message but no chat identifier
			okJSON(`[{"update_id":5,"message":{"message_id":1,"date":1700000000,"text":"hi"}}]`)(w, r)
		},
	})

	p := NewPoller(NewClient(testToken, srv.URL), func(_ context.Context, u *Update) error {
		_, err := normalizeUpdate(u, testChannel)
		return err
	}, slog.New(slog.DiscardHandler), pollerConfig())
	p.Start()
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		done := acked
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poller never advanced past the malformed update")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	srv := fakeAPI(t, map[string]http.HandlerFunc{
		"getUpdates": okJSON(`[]`),
	})
	p := NewPoller(NewClient(testToken, srv.URL), func(context.Context, *Update) error {
		return nil
	}, slog.New(slog.DiscardHandler), pollerConfig())
	p.Start()
	p.Stop()
	p.Stop()
}
