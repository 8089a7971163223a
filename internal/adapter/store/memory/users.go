// Package memory provides in-memory collaborator stores. They back single
// process deployments without Postgres and double as fixtures in tests.
package memory

import (
	"context"
	"sync"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/port"
)

type userRecord struct {
	Email  string
	Locale string
}

type prefKey struct {
	UserID string
	Kind   domain.Kind
}

// UserStore is an in-memory port.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]userRecord
	prefs map[prefKey]port.ChannelPreference
}

// NewUserStore builds an empty store.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]userRecord),
		prefs: make(map[prefKey]port.ChannelPreference),
	}
}

// PutUser sets a user's email and locale.
func (s *UserStore) PutUser(userID, email, locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = userRecord{Email: email, Locale: locale}
}

// PutPreference stores an explicit per-kind preference.
func (s *UserStore) PutPreference(userID string, kind domain.Kind, pref port.ChannelPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[prefKey{UserID: userID, Kind: kind}] = pref
}

func (s *UserStore) GetNotificationPreference(ctx context.Context, userID string, kind domain.Kind) (port.ChannelPreference, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.prefs[prefKey{UserID: userID, Kind: kind}]
	return pref, ok, nil
}

func (s *UserStore) GetLocale(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID].Locale, nil
}

func (s *UserStore) GetEmail(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID].Email, nil
}
