package service

import (
	"context"
	"fmt"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/port"
)

// PreferenceGate decides which channels may run for (user, kind). The policy
// is default-allow: a user without a stored record gets every channel.
// Eligibility is separate from "has a live target": a user with realtime
// enabled and no open socket is still eligible, the channel itself reports
// the skip.
type PreferenceGate struct {
	users port.UserStore
}

// NewPreferenceGate builds the gate over the user/preference store.
func NewPreferenceGate(users port.UserStore) *PreferenceGate {
	return &PreferenceGate{users: users}
}

// EligibleChannels returns the enabled channel set for (user, kind).
func (g *PreferenceGate) EligibleChannels(ctx context.Context, userID string, kind domain.Kind) (port.ChannelPreference, error) {
	pref, found, err := g.users.GetNotificationPreference(ctx, userID, kind)
	if err != nil {
		return port.ChannelPreference{}, fmt.Errorf("load preference for user %s kind %s: %w", userID, kind, err)
	}
	if !found {
		return port.AllChannels(), nil
	}
	return pref, nil
}
