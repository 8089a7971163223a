package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedeskhq/notify/internal/domain"
)

// OutcomeRecorder persists per-channel delivery results. The insert is keyed
// on (event_id, channel), so re-delivering an event id is idempotent at this
// boundary even though the dispatcher itself never deduplicates.
type OutcomeRecorder struct {
	db *pgxpool.Pool
}

// NewOutcomeRecorder builds the recorder.
func NewOutcomeRecorder(db *pgxpool.Pool) *OutcomeRecorder {
	return &OutcomeRecorder{db: db}
}

func (r *OutcomeRecorder) Record(ctx context.Context, outcome domain.DispatchOutcome) error {
	if r.db == nil {
		return fmt.Errorf("db not configured")
	}
	for _, res := range outcome.Results {
		_, err := r.db.Exec(ctx, `
			INSERT INTO delivery_outcomes (event_id, channel, status, error, attempted_at)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)
			ON CONFLICT (event_id, channel) DO NOTHING
		`, outcome.EventID, res.Channel, res.Status, res.Error, res.AttemptedAt)
		if err != nil {
			return fmt.Errorf("record outcome %s/%s: %w", outcome.EventID, res.Channel, err)
		}
	}
	return nil
}
