package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies a logical notification type, e.g. "request.created".
type Kind string

const (
	KindRequestCreated       Kind = "request.created"
	KindRequestStatusChanged Kind = "request.status_changed"
	KindRequestAssigned      Kind = "request.assigned"
	KindRequestCommented     Kind = "request.commented"
	KindAuthWelcome          Kind = "auth.welcome"
	KindAuthPasswordReset    Kind = "auth.password_reset"
)

// NotificationEvent is the unit of work entering the dispatch core.
// ID doubles as the idempotency key at the outcome recorder boundary.
type NotificationEvent struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	RecipientUserID string    `json:"recipientUserId"`
	Payload         Payload   `json:"payload,omitempty"`
	Locale          string    `json:"locale,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Validate checks the invariants every event must satisfy before dispatch.
func (e NotificationEvent) Validate() error {
	if strings.TrimSpace(string(e.Kind)) == "" {
		return fmt.Errorf("notification event %q: kind is empty", e.ID)
	}
	if strings.TrimSpace(e.RecipientUserID) == "" {
		return fmt.Errorf("notification event %q: recipient user id is empty", e.ID)
	}
	return nil
}

// ChannelName identifies a delivery channel.
type ChannelName string

const (
	ChannelRealtime ChannelName = "realtime"
	ChannelPush     ChannelName = "push"
	ChannelEmail    ChannelName = "email"
)

// ChannelOrder is the stable presentation order of channel results inside a
// DispatchOutcome. It is not an execution order.
var ChannelOrder = []ChannelName{ChannelRealtime, ChannelPush, ChannelEmail}

// DeliveryStatus classifies the outcome of one channel attempt.
type DeliveryStatus string

const (
	// StatusDelivered means the channel reached at least one live target.
	StatusDelivered DeliveryStatus = "delivered"
	// StatusSkipped means the channel was never attempted: either the
	// preference gate excluded it or there was no target to reach.
	StatusSkipped DeliveryStatus = "skipped"
	// StatusFailed means the channel was attempted and errored.
	StatusFailed DeliveryStatus = "failed"
)

// ChannelResult records a single channel attempt.
type ChannelResult struct {
	Channel     ChannelName    `json:"channel"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attemptedAt"`

	// InvalidTargets lists delivery targets (push endpoints) that returned a
	// terminal error and should be invalidated by the subscription store.
	InvalidTargets []string `json:"invalidTargets,omitempty"`
}

// DispatchOutcome aggregates the per-channel results of one dispatch.
// Skipped channels are recorded, not omitted, so an audit can distinguish
// "never tried" from "tried and failed".
type DispatchOutcome struct {
	EventID string          `json:"eventId"`
	Results []ChannelResult `json:"results"`
}

// Result returns the recorded result for the given channel.
func (o DispatchOutcome) Result(ch ChannelName) (ChannelResult, bool) {
	for _, r := range o.Results {
		if r.Channel == ch {
			return r, true
		}
	}
	return ChannelResult{}, false
}

// Connection is one open realtime connection owned by a user.
type Connection struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	ConnectedAt  time.Time `json:"connectedAt"`
}
