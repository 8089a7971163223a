package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedeskhq/notify/internal/port"
)

// SubscriptionStore is a port.SubscriptionStore over push_subscriptions.
// Invalidated subscriptions are tombstoned, not deleted, so a retry scheduler
// can still audit what was dropped.
type SubscriptionStore struct {
	db *pgxpool.Pool
}

// NewSubscriptionStore builds the store.
func NewSubscriptionStore(db *pgxpool.Pool) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func (s *SubscriptionStore) ListActive(ctx context.Context, userID string) ([]port.PushSubscription, error) {
	if s.db == nil {
		return nil, fmt.Errorf("db not configured")
	}
	rows, err := s.db.Query(ctx, `
		SELECT endpoint, keys
		FROM push_subscriptions
		WHERE user_id = $1 AND invalidated_at IS NULL
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []port.PushSubscription
	for rows.Next() {
		var sub port.PushSubscription
		if err := rows.Scan(&sub.Endpoint, &sub.Keys); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SubscriptionStore) MarkInvalid(ctx context.Context, endpoint string) error {
	if s.db == nil {
		return fmt.Errorf("db not configured")
	}
	_, err := s.db.Exec(ctx, `
		UPDATE push_subscriptions
		SET invalidated_at = now()
		WHERE endpoint = $1 AND invalidated_at IS NULL
	`, endpoint)
	return err
}
