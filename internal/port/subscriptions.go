package port

import "context"

// PushSubscription is one browser push registration.
type PushSubscription struct {
	Endpoint string
	Keys     map[string]string
}

// SubscriptionStore manages the recipient's browser push subscriptions.
type SubscriptionStore interface {
	// ListActive returns the user's non-invalidated subscriptions.
	ListActive(ctx context.Context, userID string) ([]PushSubscription, error)
	// MarkInvalid flags a subscription whose endpoint returned a terminal
	// error. The store decides whether to delete or tombstone it.
	MarkInvalid(ctx context.Context, endpoint string) error
}
