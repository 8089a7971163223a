package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
	"github.com/servicedeskhq/notify/internal/port"
)

// pushMessage is the payload handed to the push provider per subscription.
type pushMessage struct {
	Title   string      `json:"title"`
	Body    string      `json:"body"`
	Kind    domain.Kind `json:"kind"`
	EventID string      `json:"eventId"`
}

// Push fans one event out to the recipient's browser push subscriptions with
// bounded parallelism.
type Push struct {
	subs        port.SubscriptionStore
	provider    port.PushProvider
	maxParallel int
}

// NewPush builds the push channel. maxParallel bounds concurrent provider
// calls per event.
func NewPush(subs port.SubscriptionStore, provider port.PushProvider, maxParallel int) *Push {
	if maxParallel < 1 {
		maxParallel = 4
	}
	return &Push{subs: subs, provider: provider, maxParallel: maxParallel}
}

func (c *Push) Name() domain.ChannelName { return domain.ChannelPush }

func (c *Push) NeedsContent() bool { return true }

// Deliver sends to every active subscription. Zero subscriptions is a skip,
// one success is delivered. Terminal provider errors are surfaced through the
// result's InvalidTargets so the subscription store can clean up; the channel
// itself never mutates the store.
func (c *Push) Deliver(ctx context.Context, event domain.NotificationEvent, content Content) domain.ChannelResult {
	subs, err := c.subs.ListActive(ctx, event.RecipientUserID)
	if err != nil {
		return failedResult(c.Name(), fmt.Errorf("list subscriptions: %w", err))
	}
	if len(subs) == 0 {
		return skippedResult(c.Name())
	}

	payload, err := json.Marshal(pushMessage{
		Title:   content.Subject,
		Body:    content.Body,
		Kind:    event.Kind,
		EventID: event.ID,
	})
	if err != nil {
		return failedResult(c.Name(), fmt.Errorf("encode push payload: %w", err))
	}

	l := logger.From(ctx)
	sem := make(chan struct{}, c.maxParallel)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sendErrs []string
		invalid  []string
		ok       int
	)
	for _, sub := range subs {
		wg.Add(1)
		sem <- struct{}{}
		go func(sub port.PushSubscription) {
			defer wg.Done()
			defer func() { <-sem }()

			err := c.provider.Push(ctx, sub, payload)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			sendErrs = append(sendErrs, fmt.Sprintf("%s: %v", sub.Endpoint, err))
			if errors.Is(err, port.ErrSubscriptionGone) {
				invalid = append(invalid, sub.Endpoint)
			}
			l.Warn("push delivery failed",
				slog.String("endpoint", sub.Endpoint),
				slog.String("event_id", event.ID),
				slog.Any("error", err),
			)
		}(sub)
	}
	wg.Wait()

	var result domain.ChannelResult
	if ok > 0 {
		result = deliveredResult(c.Name())
	} else {
		result = failedResult(c.Name(), fmt.Errorf("all %d subscriptions failed: %s", len(subs), strings.Join(sendErrs, "; ")))
	}
	result.InvalidTargets = invalid
	return result
}
