package port

import (
	"context"
	"errors"
	"fmt"
)

// ErrSubscriptionGone marks a terminal push failure: the endpoint no longer
// exists and the subscription should be invalidated, not retried.
var ErrSubscriptionGone = errors.New("push subscription gone")

// TerminalPushError wraps a provider response that will never succeed.
type TerminalPushError struct {
	Endpoint   string
	StatusCode int
}

func (e *TerminalPushError) Error() string {
	return fmt.Sprintf("push endpoint %s: terminal status %d", e.Endpoint, e.StatusCode)
}

func (e *TerminalPushError) Unwrap() error { return ErrSubscriptionGone }

// PushProvider delivers one message to one subscription. Terminal failures
// must unwrap to ErrSubscriptionGone so the caller can flag the subscription.
type PushProvider interface {
	Push(ctx context.Context, sub PushSubscription, payload []byte) error
}
