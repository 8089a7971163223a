// Package httppush delivers browser push messages by POSTing to each
// subscription endpoint. Payload encryption and VAPID signing are owned by an
// upstream push gateway; this client only speaks plain HTTP to it.
package httppush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/servicedeskhq/notify/internal/pkg/circuitbreaker"
	"github.com/servicedeskhq/notify/internal/port"
)

const defaultTTL = "60"

// Client is a port.PushProvider over HTTP.
type Client struct {
	http    *http.Client
	breaker *circuitbreaker.Breaker
}

// New builds the client. timeout bounds a single endpoint call.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(10, 30*time.Second, 2),
	}
}

// Push POSTs the payload to the subscription endpoint. 404 and 410 are
// terminal: the subscription no longer exists and must be invalidated.
func (c *Client) Push(ctx context.Context, sub port.PushSubscription, payload []byte) error {
	return c.breaker.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build push request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("TTL", defaultTTL)
		for k, v := range sub.Keys {
			req.Header.Set("X-Push-Key-"+k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("push endpoint %s: %w", sub.Endpoint, err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			return &port.TerminalPushError{Endpoint: sub.Endpoint, StatusCode: resp.StatusCode}
		default:
			return fmt.Errorf("push endpoint %s: status %d", sub.Endpoint, resp.StatusCode)
		}
	})
}
