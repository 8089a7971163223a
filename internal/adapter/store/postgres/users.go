// Package postgres implements the collaborator stores over pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/port"
)

// UserStore is a port.UserStore over the platform's users and
// notification_preferences tables.
type UserStore struct {
	db *pgxpool.Pool
}

// NewUserStore builds the store.
func NewUserStore(db *pgxpool.Pool) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetNotificationPreference(ctx context.Context, userID string, kind domain.Kind) (port.ChannelPreference, bool, error) {
	if s.db == nil {
		return port.ChannelPreference{}, false, fmt.Errorf("db not configured")
	}
	row := s.db.QueryRow(ctx, `
		SELECT realtime_enabled, push_enabled, email_enabled
		FROM notification_preferences
		WHERE user_id = $1 AND kind = $2
	`, userID, kind)

	var pref port.ChannelPreference
	if err := row.Scan(&pref.Realtime, &pref.Push, &pref.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return port.ChannelPreference{}, false, nil
		}
		return port.ChannelPreference{}, false, err
	}
	return pref, true, nil
}

func (s *UserStore) GetLocale(ctx context.Context, userID string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("db not configured")
	}
	row := s.db.QueryRow(ctx, `SELECT COALESCE(locale, '') FROM users WHERE id = $1`, userID)
	var locale string
	if err := row.Scan(&locale); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return locale, nil
}

func (s *UserStore) GetEmail(ctx context.Context, userID string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("db not configured")
	}
	row := s.db.QueryRow(ctx, `SELECT COALESCE(email, '') FROM users WHERE id = $1`, userID)
	var email string
	if err := row.Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return email, nil
}
