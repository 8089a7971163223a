// Package service hosts the notification dispatch core: the fan-out engine,
// the preference gate and the template resolver.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/servicedeskhq/notify/internal/channel"
	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
	"github.com/servicedeskhq/notify/internal/port"
)

const defaultChannelTimeout = 5 * time.Second

// Dispatcher fans one NotificationEvent out to every eligible channel
// concurrently and aggregates the per-channel results. It carries no retry
// logic; failed results are recorded and an outer scheduler may re-submit.
type Dispatcher struct {
	gate           *PreferenceGate
	resolver       *TemplateResolver
	users          port.UserStore
	subs           port.SubscriptionStore
	recorder       port.OutcomeRecorder
	channels       []channel.Channel
	channelTimeout time.Duration
}

// NewDispatcher wires the fan-out engine. Channels are invoked concurrently
// but reported in the stable order given here.
func NewDispatcher(
	gate *PreferenceGate,
	resolver *TemplateResolver,
	users port.UserStore,
	subs port.SubscriptionStore,
	recorder port.OutcomeRecorder,
	channels []channel.Channel,
	channelTimeout time.Duration,
) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = defaultChannelTimeout
	}
	return &Dispatcher{
		gate:           gate,
		resolver:       resolver,
		users:          users,
		subs:           subs,
		recorder:       recorder,
		channels:       channels,
		channelTimeout: channelTimeout,
	}
}

// Dispatch runs one fan-out. It returns an error only for invalid events and
// missing templates; ordinary delivery failures land in the outcome. The
// outcome recorder runs after all channels joined, without blocking the
// caller's return.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.NotificationEvent) (domain.DispatchOutcome, error) {
	started := time.Now()
	l := logger.From(ctx).With(
		slog.String("event_id", event.ID),
		slog.String("kind", string(event.Kind)),
		slog.String("user_id", event.RecipientUserID),
	)

	if err := event.Validate(); err != nil {
		dispatchFailures.Inc()
		return domain.DispatchOutcome{}, err
	}

	locale := d.effectiveLocale(ctx, event, l)

	eligible, err := d.gate.EligibleChannels(ctx, event.RecipientUserID, event.Kind)
	if err != nil {
		// Default-allow: a broken preference store must not silence
		// notifications the user never disabled.
		l.Warn("preference gate unavailable, defaulting to all channels", slog.Any("error", err))
		eligible = port.AllChannels()
	}

	// Content is resolved once, before any channel is invoked, so a missing
	// template aborts the dispatch with zero channels attempted.
	var content channel.Content
	if d.contentRequired(eligible) {
		content, err = d.resolver.Resolve(ctx, event.Kind, locale, event.Payload)
		if err != nil {
			dispatchFailures.Inc()
			return domain.DispatchOutcome{}, fmt.Errorf("dispatch %s: %w", event.ID, err)
		}
	}

	results := d.fanOut(ctx, event, eligible, content)

	outcome := domain.DispatchOutcome{EventID: event.ID, Results: results}
	for _, r := range results {
		channelResults.WithLabelValues(string(r.Channel), string(r.Status)).Inc()
	}
	dispatchDuration.Observe(time.Since(started).Seconds())

	d.finalize(ctx, outcome, l)
	return outcome, nil
}

func (d *Dispatcher) effectiveLocale(ctx context.Context, event domain.NotificationEvent, l *slog.Logger) string {
	if event.Locale != "" {
		return event.Locale
	}
	locale, err := d.users.GetLocale(ctx, event.RecipientUserID)
	if err != nil {
		l.Warn("locale lookup failed, using default", slog.Any("error", err))
		return ""
	}
	return locale
}

func (d *Dispatcher) contentRequired(eligible port.ChannelPreference) bool {
	for _, ch := range d.channels {
		if ch.NeedsContent() && eligible.Enabled(ch.Name()) {
			return true
		}
	}
	return false
}

// fanOut invokes every eligible channel in its own goroutine and joins them.
// Ineligible channels get a synthesized skipped result without the channel or
// the template resolver ever running for them. Results come back in the
// dispatcher's stable channel order regardless of completion order.
func (d *Dispatcher) fanOut(ctx context.Context, event domain.NotificationEvent, eligible port.ChannelPreference, content channel.Content) []domain.ChannelResult {
	results := make([]domain.ChannelResult, len(d.channels))
	done := make(chan struct{})
	pending := 0

	for i, ch := range d.channels {
		if !eligible.Enabled(ch.Name()) {
			results[i] = domain.ChannelResult{
				Channel:     ch.Name(),
				Status:      domain.StatusSkipped,
				AttemptedAt: time.Now().UTC(),
			}
			continue
		}
		pending++
		go func(i int, ch channel.Channel) {
			results[i] = d.deliverOne(ctx, ch, event, content)
			done <- struct{}{}
		}(i, ch)
	}
	for ; pending > 0; pending-- {
		<-done
	}
	return results
}

// deliverOne runs a single channel under its own timeout and panic barrier.
// A slow channel costs at most channelTimeout; a panicking one becomes a
// failed result instead of taking the sibling goroutines down.
func (d *Dispatcher) deliverOne(ctx context.Context, ch channel.Channel, event domain.NotificationEvent, content channel.Content) domain.ChannelResult {
	cctx, cancel := context.WithTimeout(ctx, d.channelTimeout)
	defer cancel()

	resultCh := make(chan domain.ChannelResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.From(ctx).Error("channel panicked",
					slog.String("channel", string(ch.Name())),
					slog.String("event_id", event.ID),
					slog.Any("panic", r),
				)
				resultCh <- domain.ChannelResult{
					Channel:     ch.Name(),
					Status:      domain.StatusFailed,
					Error:       fmt.Sprintf("channel panic: %v", r),
					AttemptedAt: time.Now().UTC(),
				}
			}
		}()
		resultCh <- ch.Deliver(cctx, event, content)
	}()

	select {
	case res := <-resultCh:
		return res
	case <-cctx.Done():
		return domain.ChannelResult{
			Channel:     ch.Name(),
			Status:      domain.StatusFailed,
			Error:       fmt.Sprintf("channel timed out after %s", d.channelTimeout),
			AttemptedAt: time.Now().UTC(),
		}
	}
}

// finalize records the outcome and flags terminal push targets. Both are
// collaborator calls the dispatch caller must not wait on, but they only
// start after every channel has finished.
func (d *Dispatcher) finalize(ctx context.Context, outcome domain.DispatchOutcome, l *slog.Logger) {
	bg := context.WithoutCancel(ctx)
	go func() {
		for _, r := range outcome.Results {
			for _, endpoint := range r.InvalidTargets {
				if err := d.subs.MarkInvalid(bg, endpoint); err != nil {
					l.Warn("subscription invalidation failed",
						slog.String("endpoint", endpoint),
						slog.Any("error", err),
					)
				}
			}
		}
		if err := d.recorder.Record(bg, outcome); err != nil {
			l.Error("outcome recording failed", slog.Any("error", err))
		}
	}()
}
