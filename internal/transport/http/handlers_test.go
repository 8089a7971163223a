package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicedeskhq/notify/internal/adapter/store/memory"
	"github.com/servicedeskhq/notify/internal/channel"
	"github.com/servicedeskhq/notify/internal/domain"
	"github.com/servicedeskhq/notify/internal/pkg/presence"
	"github.com/servicedeskhq/notify/internal/port"
	"github.com/servicedeskhq/notify/internal/service"
	"github.com/servicedeskhq/notify/internal/transport/ws"
)

func newTestRouter(t *testing.T) (http.Handler, *presence.Registry, *memory.UserStore, *memory.TemplateStore) {
	t.Helper()
	users := memory.NewUserStore()
	subs := memory.NewSubscriptionStore()
	templates := memory.NewTemplateStore()
	registry := presence.NewRegistry()
	hub := ws.NewHub(registry)

	dispatcher := service.NewDispatcher(
		service.NewPreferenceGate(users),
		service.NewTemplateResolver(templates, "en"),
		users,
		subs,
		memory.NewOutcomeRecorder(),
		[]channel.Channel{
			channel.NewRealtime(registry, hub),
			channel.NewPush(subs, noopProvider{}, 2),
			channel.NewEmail(users, noopMailer{}),
		},
		time.Second,
	)
	handler := NewHandler(dispatcher, registry)
	router := NewRouter(handler, hub, func() map[string]bool {
		return map[string]bool{"self": true}
	})
	return router, registry, users, templates
}

type noopProvider struct{}

func (noopProvider) Push(context.Context, port.PushSubscription, []byte) error { return nil }

type noopMailer struct{}

func (noopMailer) Send(context.Context, port.EmailMessage) error { return nil }

func TestDispatchEndpoint(t *testing.T) {
	router, _, users, templates := newTestRouter(t)
	users.PutUser("u1", "ana@example.com", "en")
	templates.Put(domain.KindRequestCreated, "en", port.Template{Subject: "s", Body: "b"})

	body := `{"kind":"request.created","recipientUserId":"u1","payload":{"service":{"name":"Plumbing"}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results"`)
	assert.Contains(t, rec.Body.String(), `"skipped"`)
}

func TestDispatchEndpointValidation(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(`{"kind":"request.created"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchEndpointMissingTemplate(t *testing.T) {
	router, _, users, _ := newTestRouter(t)
	users.PutUser("u1", "ana@example.com", "en")

	body := `{"kind":"bogus.event","recipientUserId":"u1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPresenceEndpoint(t *testing.T) {
	router, registry, _, _ := newTestRouter(t)
	registry.Register("u1", "c1")

	req := httptest.NewRequest(http.MethodGet, "/v1/presence/u1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isOnline":true`)

	req = httptest.NewRequest(http.MethodGet, "/v1/presence/ghost", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `"isOnline":false`)
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
