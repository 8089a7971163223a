package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
	"github.com/servicedeskhq/notify/internal/pkg/presence"
	"github.com/servicedeskhq/notify/internal/port"
)

// realtimeFrame is the in-app message pushed to open sockets. It carries the
// raw event payload; the client renders it from its own locale bundle, so no
// template resolution happens on this channel.
type realtimeFrame struct {
	Type      string         `json:"type"`
	EventID   string         `json:"eventId"`
	Kind      domain.Kind    `json:"kind"`
	Payload   domain.Payload `json:"payload,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

// Realtime pushes events to every open connection of the recipient.
type Realtime struct {
	registry *presence.Registry
	sender   port.SocketSender
}

// NewRealtime builds the realtime channel.
func NewRealtime(registry *presence.Registry, sender port.SocketSender) *Realtime {
	return &Realtime{registry: registry, sender: sender}
}

func (c *Realtime) Name() domain.ChannelName { return domain.ChannelRealtime }

func (c *Realtime) NeedsContent() bool { return false }

// Deliver pushes to all open connections. No connection is a skip, at least
// one successful push is delivered, all pushes failing is a failure with the
// individual errors aggregated.
func (c *Realtime) Deliver(ctx context.Context, event domain.NotificationEvent, _ Content) domain.ChannelResult {
	conns := c.registry.ActiveConnections(event.RecipientUserID)
	if len(conns) == 0 {
		return skippedResult(c.Name())
	}

	frame, err := json.Marshal(realtimeFrame{
		Type:      "notification",
		EventID:   event.ID,
		Kind:      event.Kind,
		Payload:   event.Payload,
		CreatedAt: event.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return failedResult(c.Name(), fmt.Errorf("encode frame: %w", err))
	}

	l := logger.From(ctx)
	var pushErrs []string
	delivered := 0
	for _, connID := range conns {
		if err := c.sender.SendToConnection(ctx, connID, frame); err != nil {
			l.Warn("realtime push failed",
				slog.String("connection_id", connID),
				slog.String("event_id", event.ID),
				slog.Any("error", err),
			)
			pushErrs = append(pushErrs, fmt.Sprintf("%s: %v", connID, err))
			continue
		}
		delivered++
	}

	if delivered > 0 {
		return deliveredResult(c.Name())
	}
	return failedResult(c.Name(), fmt.Errorf("all %d connections failed: %s", len(conns), strings.Join(pushErrs, "; ")))
}
