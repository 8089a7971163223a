package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicedeskhq/notify/internal/adapter/store/memory"
	"github.com/servicedeskhq/notify/internal/channel"
	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/presence"
	"github.com/servicedeskhq/notify/internal/port"
)

type stubSender struct {
	mu   sync.Mutex
	sent map[string]int
	err  error
}

func (s *stubSender) SendToConnection(_ context.Context, connectionID string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.sent == nil {
		s.sent = make(map[string]int)
	}
	s.sent[connectionID]++
	return nil
}

type stubProvider struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (p *stubProvider) Push(_ context.Context, _ port.PushSubscription, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent++
	return nil
}

type stubMailer struct {
	mu   sync.Mutex
	sent []port.EmailMessage
	err  error
}

func (m *stubMailer) Send(_ context.Context, msg port.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// signalRecorder wraps the memory recorder and signals each Record call so
// tests can wait for the fire-and-forget finalize step.
type signalRecorder struct {
	*memory.OutcomeRecorder
	recorded chan domain.DispatchOutcome
}

func newSignalRecorder() *signalRecorder {
	return &signalRecorder{
		OutcomeRecorder: memory.NewOutcomeRecorder(),
		recorded:        make(chan domain.DispatchOutcome, 8),
	}
}

func (r *signalRecorder) Record(ctx context.Context, outcome domain.DispatchOutcome) error {
	err := r.OutcomeRecorder.Record(ctx, outcome)
	r.recorded <- outcome
	return err
}

func (r *signalRecorder) wait(t *testing.T) domain.DispatchOutcome {
	t.Helper()
	select {
	case o := <-r.recorded:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("outcome recorder was never called")
		return domain.DispatchOutcome{}
	}
}

type fixture struct {
	users      *memory.UserStore
	subs       *memory.SubscriptionStore
	templates  *memory.TemplateStore
	recorder   *signalRecorder
	registry   *presence.Registry
	sender     *stubSender
	provider   *stubProvider
	mailer     *stubMailer
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     memory.NewUserStore(),
		subs:      memory.NewSubscriptionStore(),
		templates: memory.NewTemplateStore(),
		recorder:  newSignalRecorder(),
		registry:  presence.NewRegistry(),
		sender:    &stubSender{},
		provider:  &stubProvider{},
		mailer:    &stubMailer{},
	}
	channels := []channel.Channel{
		channel.NewRealtime(f.registry, f.sender),
		channel.NewPush(f.subs, f.provider, 2),
		channel.NewEmail(f.users, f.mailer),
	}
	f.dispatcher = NewDispatcher(
		NewPreferenceGate(f.users),
		NewTemplateResolver(f.templates, "en"),
		f.users,
		f.subs,
		f.recorder,
		channels,
		time.Second,
	)
	return f
}

func requestCreatedEvent() domain.NotificationEvent {
	return domain.NotificationEvent{
		ID:              "ev-1",
		Kind:            domain.KindRequestCreated,
		RecipientUserID: "u1",
		Payload:         domain.P("service", domain.P("name", "Plumbing")),
		CreatedAt:       time.Now().UTC(),
	}
}

func TestDispatchOnlineUserPushDisabled(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "es")
	f.users.PutPreference("u1", domain.KindRequestCreated, port.ChannelPreference{
		Realtime: true, Push: false, Email: true,
	})
	f.templates.Put(domain.KindRequestCreated, "es", port.Template{
		Subject: "Nueva solicitud: {{service.name}}",
		Body:    "Se creó una solicitud para {{service.name}}.",
	})
	f.registry.Register("u1", "c1")

	outcome, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)
	require.Len(t, outcome.Results, 3)

	// Stable presentation order, regardless of completion order.
	assert.Equal(t, domain.ChannelRealtime, outcome.Results[0].Channel)
	assert.Equal(t, domain.ChannelPush, outcome.Results[1].Channel)
	assert.Equal(t, domain.ChannelEmail, outcome.Results[2].Channel)

	assert.Equal(t, domain.StatusDelivered, outcome.Results[0].Status)
	assert.Equal(t, domain.StatusSkipped, outcome.Results[1].Status)
	assert.Equal(t, domain.StatusDelivered, outcome.Results[2].Status)

	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, "Nueva solicitud: Plumbing", f.mailer.sent[0].Subject)
	assert.Equal(t, "ana@example.com", f.mailer.sent[0].To)

	recorded := f.recorder.wait(t)
	assert.Equal(t, outcome, recorded)
}

func TestDispatchOfflineUserRealtimeSkipped(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})

	outcome, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)

	rt, ok := outcome.Result(domain.ChannelRealtime)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSkipped, rt.Status)
	f.recorder.wait(t)
}

func TestDispatchZeroSubscriptionsIsSkippedNotFailed(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})

	outcome, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)

	push, ok := outcome.Result(domain.ChannelPush)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSkipped, push.Status)
	assert.Empty(t, push.Error)
	f.recorder.wait(t)
}

func TestDispatchDisabledEmailNeverCallsMailer(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.users.PutPreference("u1", domain.KindRequestCreated, port.ChannelPreference{
		Realtime: true, Push: true, Email: false,
	})
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})

	outcome, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)

	email, ok := outcome.Result(domain.ChannelEmail)
	require.True(t, ok)
	assert.Equal(t, domain.StatusSkipped, email.Status)
	assert.Equal(t, 0, f.mailer.count())
	f.recorder.wait(t)
}

func TestDispatchMailerFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})
	f.registry.Register("u1", "c1")
	f.mailer.err = errors.New("smtp 550")

	outcome, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)

	email, _ := outcome.Result(domain.ChannelEmail)
	assert.Equal(t, domain.StatusFailed, email.Status)
	assert.Contains(t, email.Error, "smtp 550")

	rt, _ := outcome.Result(domain.ChannelRealtime)
	assert.Equal(t, domain.StatusDelivered, rt.Status)
	f.recorder.wait(t)
}

// panickyChannel stands in for a channel implementation with a bug.
type panickyChannel struct{}

func (panickyChannel) Name() domain.ChannelName { return domain.ChannelPush }
func (panickyChannel) NeedsContent() bool       { return true }
func (panickyChannel) Deliver(context.Context, domain.NotificationEvent, channel.Content) domain.ChannelResult {
	panic("push channel bug")
}

func TestDispatchPanickingChannelDoesNotPoisonSiblings(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})
	f.registry.Register("u1", "c1")

	channels := []channel.Channel{
		channel.NewRealtime(f.registry, f.sender),
		panickyChannel{},
		channel.NewEmail(f.users, f.mailer),
	}
	d := NewDispatcher(
		NewPreferenceGate(f.users),
		NewTemplateResolver(f.templates, "en"),
		f.users, f.subs, f.recorder, channels, time.Second,
	)

	outcome, err := d.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)

	push, _ := outcome.Result(domain.ChannelPush)
	assert.Equal(t, domain.StatusFailed, push.Status)
	assert.Contains(t, push.Error, "panic")

	rt, _ := outcome.Result(domain.ChannelRealtime)
	assert.Equal(t, domain.StatusDelivered, rt.Status)
	email, _ := outcome.Result(domain.ChannelEmail)
	assert.Equal(t, domain.StatusDelivered, email.Status)
	f.recorder.wait(t)
}

type slowChannel struct{ delay time.Duration }

func (c slowChannel) Name() domain.ChannelName { return domain.ChannelPush }
func (c slowChannel) NeedsContent() bool       { return false }
func (c slowChannel) Deliver(ctx context.Context, _ domain.NotificationEvent, _ channel.Content) domain.ChannelResult {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
	}
	return domain.ChannelResult{Channel: domain.ChannelPush, Status: domain.StatusDelivered}
}

func TestDispatchSlowChannelTimesOut(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.registry.Register("u1", "c1")

	channels := []channel.Channel{
		channel.NewRealtime(f.registry, f.sender),
		slowChannel{delay: time.Second},
	}
	d := NewDispatcher(
		NewPreferenceGate(f.users),
		NewTemplateResolver(f.templates, "en"),
		f.users, f.subs, f.recorder, channels, 50*time.Millisecond,
	)

	started := time.Now()
	outcome, err := d.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 500*time.Millisecond)

	push, _ := outcome.Result(domain.ChannelPush)
	assert.Equal(t, domain.StatusFailed, push.Status)
	assert.Contains(t, push.Error, "timed out")

	rt, _ := outcome.Result(domain.ChannelRealtime)
	assert.Equal(t, domain.StatusDelivered, rt.Status)
	f.recorder.wait(t)
}

func TestDispatchMissingTemplateFailsFast(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.registry.Register("u1", "c1")

	event := requestCreatedEvent()
	event.Kind = domain.Kind("bogus.event")

	_, err := f.dispatcher.Dispatch(context.Background(), event)
	require.Error(t, err)

	var notFound *TemplateNotFoundError
	assert.ErrorAs(t, err, &notFound)

	// No channel ran and nothing was recorded.
	assert.Equal(t, 0, len(f.sender.sent))
	assert.Equal(t, 0, f.mailer.count())
	assert.Equal(t, 0, f.recorder.Count())
}

func TestDispatchAllContentChannelsDisabledSkipsTemplateLookup(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.users.PutPreference("u1", domain.Kind("bogus.event"), port.ChannelPreference{
		Realtime: true, Push: false, Email: false,
	})
	f.registry.Register("u1", "c1")

	event := requestCreatedEvent()
	event.Kind = domain.Kind("bogus.event")

	// No template exists for the kind, but none of the eligible channels
	// needs one, so the dispatch succeeds.
	outcome, err := f.dispatcher.Dispatch(context.Background(), event)
	require.NoError(t, err)

	rt, _ := outcome.Result(domain.ChannelRealtime)
	assert.Equal(t, domain.StatusDelivered, rt.Status)
	f.recorder.wait(t)
}

func TestDispatchMarksTerminalSubscriptions(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "en")
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})
	f.subs.Add("u1", port.PushSubscription{Endpoint: "https://push.example/gone"})
	f.provider.err = &port.TerminalPushError{Endpoint: "https://push.example/gone", StatusCode: 410}

	outcome, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)

	push, _ := outcome.Result(domain.ChannelPush)
	assert.Equal(t, domain.StatusFailed, push.Status)

	// Invalidation happens in finalize, before the recorder call.
	f.recorder.wait(t)
	assert.True(t, f.subs.IsInvalid("https://push.example/gone"))
}

func TestDispatchRejectsInvalidEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), domain.NotificationEvent{ID: "ev-x"})
	assert.Error(t, err)
	assert.Equal(t, 0, f.recorder.Count())
}

func TestDispatchUsesStoredLocale(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "es")
	f.templates.Put(domain.KindRequestCreated, "es", port.Template{Subject: "Hola {{service.name}}", Body: "b"})
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "Hello {{service.name}}", Body: "b"})

	_, err := f.dispatcher.Dispatch(context.Background(), requestCreatedEvent())
	require.NoError(t, err)
	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, "Hola Plumbing", f.mailer.sent[0].Subject)
	f.recorder.wait(t)
}

func TestDispatchEventLocaleOverridesStored(t *testing.T) {
	f := newFixture(t)
	f.users.PutUser("u1", "ana@example.com", "es")
	f.templates.Put(domain.KindRequestCreated, "es", port.Template{Subject: "Hola", Body: "b"})
	f.templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "Hello", Body: "b"})

	event := requestCreatedEvent()
	event.Locale = "en"

	_, err := f.dispatcher.Dispatch(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, 1, f.mailer.count())
	assert.Equal(t, "Hello", f.mailer.sent[0].Subject)
	f.recorder.wait(t)
}
