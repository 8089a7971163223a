package memory

import (
	"context"
	"sync"

	"github.com/servicedeskhq/notify/internal/port"
)

type subscription struct {
	UserID  string
	Sub     port.PushSubscription
	Invalid bool
}

// SubscriptionStore is an in-memory port.SubscriptionStore.
type SubscriptionStore struct {
	mu   sync.RWMutex
	subs map[string]*subscription // keyed by endpoint
}

// NewSubscriptionStore builds an empty store.
func NewSubscriptionStore() *SubscriptionStore {
	return &SubscriptionStore{subs: make(map[string]*subscription)}
}

// Add registers a subscription for a user.
func (s *SubscriptionStore) Add(userID string, sub port.PushSubscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.Endpoint] = &subscription{UserID: userID, Sub: sub}
}

func (s *SubscriptionStore) ListActive(ctx context.Context, userID string) ([]port.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]port.PushSubscription, 0)
	for _, rec := range s.subs {
		if rec.UserID == userID && !rec.Invalid {
			out = append(out, rec.Sub)
		}
	}
	return out, nil
}

func (s *SubscriptionStore) MarkInvalid(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.subs[endpoint]; ok {
		rec.Invalid = true
	}
	return nil
}

// IsInvalid reports whether an endpoint was flagged. Test helper.
func (s *SubscriptionStore) IsInvalid(endpoint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.subs[endpoint]
	return ok && rec.Invalid
}
