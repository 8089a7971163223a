package port

import (
	"context"

	"github.com/servicedeskhq/notify/internal/domain"
)

// ChannelPreference is the per-user, per-kind channel enable set.
// The zero value is meaningless; absent records default to AllChannels.
type ChannelPreference struct {
	Realtime bool
	Push     bool
	Email    bool
}

// AllChannels is the default-allow preference used when no record exists.
func AllChannels() ChannelPreference {
	return ChannelPreference{Realtime: true, Push: true, Email: true}
}

// Enabled reports whether the named channel is allowed.
func (p ChannelPreference) Enabled(ch domain.ChannelName) bool {
	switch ch {
	case domain.ChannelRealtime:
		return p.Realtime
	case domain.ChannelPush:
		return p.Push
	case domain.ChannelEmail:
		return p.Email
	}
	return false
}

// UserStore exposes the slice of the user/preference store the dispatch core
// consumes. Implementations must treat a missing preference record as "not
// found", not as an error.
type UserStore interface {
	// GetNotificationPreference returns the stored preference for (user, kind).
	// found is false when the user never customized this kind.
	GetNotificationPreference(ctx context.Context, userID string, kind domain.Kind) (pref ChannelPreference, found bool, err error)
	// GetLocale returns the user's preferred locale, or "" when unset.
	GetLocale(ctx context.Context, userID string) (string, error)
	// GetEmail returns the user's address for transactional mail, or "" when
	// the user has none on file.
	GetEmail(ctx context.Context, userID string) (string, error)
}
