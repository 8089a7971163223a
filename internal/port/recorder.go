package port

import (
	"context"

	"github.com/servicedeskhq/notify/internal/domain"
)

// OutcomeRecorder persists per-channel delivery results for observability and
// retry decisions. Record must be idempotent on (event id, channel) so a
// re-delivered event does not duplicate audit rows.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome domain.DispatchOutcome) error
}
