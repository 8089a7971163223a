// Package nats consumes domain events from NATS and feeds them to the
// dispatcher. This is the fire-and-forget ingress used by the CRUD services;
// callers that care about the outcome use the HTTP endpoint instead.
package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	natspkg "github.com/nats-io/nats.go"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
)

// EventSubject is the wildcard subject the consumer listens on. Publishers
// use notify.events.<kind>, e.g. notify.events.request.created.
const EventSubject = "notify.events.>"

// Dispatcher is the slice of the service layer the consumer needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.NotificationEvent) (domain.DispatchOutcome, error)
}

// Consumer subscribes to notification events on NATS.
type Consumer struct {
	nc         *natspkg.Conn
	dispatcher Dispatcher
	timeout    time.Duration
	sub        *natspkg.Subscription
}

// NewConsumer connects to NATS. timeout bounds one dispatch triggered by a
// message.
func NewConsumer(url string, dispatcher Dispatcher, timeout time.Duration) (*Consumer, error) {
	nc, err := natspkg.Connect(url)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Consumer{nc: nc, dispatcher: dispatcher, timeout: timeout}, nil
}

// Start subscribes to the event subject. Malformed messages are logged and
// dropped; there is no redelivery at this layer.
func (c *Consumer) Start() error {
	sub, err := c.nc.Subscribe(EventSubject, c.handle)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

func (c *Consumer) handle(msg *natspkg.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	l := logger.From(ctx).With(slog.String("subject", msg.Subject))

	var event domain.NotificationEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		l.Error("dropping malformed notification event", slog.Any("error", err))
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	outcome, err := c.dispatcher.Dispatch(ctx, event)
	if err != nil {
		l.Error("dispatch failed", slog.String("event_id", event.ID), slog.Any("error", err))
		return
	}
	for _, r := range outcome.Results {
		if r.Status == domain.StatusFailed {
			l.Warn("channel delivery failed",
				slog.String("event_id", event.ID),
				slog.String("channel", string(r.Channel)),
				slog.String("error", r.Error),
			)
		}
	}
}

// IsConnected reports the connection state for health checks.
func (c *Consumer) IsConnected() bool {
	return c.nc != nil && c.nc.Status() == natspkg.CONNECTED
}

// Close drains the subscription and closes the connection.
func (c *Consumer) Close() {
	if c.sub != nil {
		_ = c.sub.Drain()
	}
	if c.nc != nil {
		c.nc.Close()
	}
}
