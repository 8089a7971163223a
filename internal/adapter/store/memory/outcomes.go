package memory

import (
	"context"
	"sync"

	"github.com/servicedeskhq/notify/internal/domain"
)

// OutcomeRecorder is an in-memory port.OutcomeRecorder. Recording the same
// event id again replaces the previous outcome, mirroring the idempotent
// upsert the Postgres recorder performs.
type OutcomeRecorder struct {
	mu       sync.RWMutex
	outcomes map[string]domain.DispatchOutcome
}

// NewOutcomeRecorder builds an empty recorder.
func NewOutcomeRecorder() *OutcomeRecorder {
	return &OutcomeRecorder{outcomes: make(map[string]domain.DispatchOutcome)}
}

func (r *OutcomeRecorder) Record(ctx context.Context, outcome domain.DispatchOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome.EventID] = outcome
	return nil
}

// Outcome returns the recorded outcome for an event id. Test helper.
func (r *OutcomeRecorder) Outcome(eventID string) (domain.DispatchOutcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outcomes[eventID]
	return o, ok
}

// Count returns the number of recorded outcomes.
func (r *OutcomeRecorder) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outcomes)
}
