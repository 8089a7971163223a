// Package app assembles the dispatch core from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	redisadapter "github.com/servicedeskhq/notify/internal/adapter/cache/redis"
	smtpmailer "github.com/servicedeskhq/notify/internal/adapter/mailer/smtp"
	"github.com/servicedeskhq/notify/internal/adapter/push/httppush"
	"github.com/servicedeskhq/notify/internal/adapter/store/memory"
	pgstore "github.com/servicedeskhq/notify/internal/adapter/store/postgres"
	"github.com/servicedeskhq/notify/internal/channel"
	"github.com/servicedeskhq/notify/internal/config"
	"github.com/servicedeskhq/notify/internal/pkg/presence"
	"github.com/servicedeskhq/notify/internal/port"
	"github.com/servicedeskhq/notify/internal/service"
	"github.com/servicedeskhq/notify/internal/transport/ws"
)

// Container holds every wired component of the notifier.
type Container struct {
	Config *config.Config

	Registry   *presence.Registry
	Hub        *ws.Hub
	Dispatcher *service.Dispatcher

	Users    port.UserStore
	Subs     port.SubscriptionStore
	Recorder port.OutcomeRecorder

	pg *pgxpool.Pool
}

// NewContainer wires stores, channels and the dispatcher. Postgres and Redis
// are optional; absent DSNs select the in-memory adapters.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	c.Registry = presence.NewRegistry()
	c.Hub = ws.NewHub(c.Registry)

	var (
		users     port.UserStore
		subs      port.SubscriptionStore
		templates port.TemplateStore
		recorder  port.OutcomeRecorder
	)
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.pg = pool
		users = pgstore.NewUserStore(pool)
		subs = pgstore.NewSubscriptionStore(pool)
		templates = pgstore.NewTemplateStore(pool)
		recorder = pgstore.NewOutcomeRecorder(pool)
	} else {
		users = memory.NewUserStore()
		subs = memory.NewSubscriptionStore()
		templates = memory.NewTemplateStore()
		recorder = memory.NewOutcomeRecorder()
	}

	if cfg.RedisAddr != "" {
		client := redisadapter.NewClient(cfg.RedisAddr)
		c.Registry.SetMirror(redisadapter.NewPresenceMirror(client, cfg.PresenceTTL))
		users = service.NewUserStoreCached(users, client, cfg.PrefCacheTTL)
	}
	c.Users = users
	c.Subs = subs
	c.Recorder = recorder

	channels := []channel.Channel{
		channel.NewRealtime(c.Registry, c.Hub),
		channel.NewPush(subs, httppush.New(cfg.PushTimeout), cfg.PushParallel),
		channel.NewEmail(users, smtpmailer.New(cfg)),
	}
	c.Dispatcher = service.NewDispatcher(
		service.NewPreferenceGate(users),
		service.NewTemplateResolver(templates, cfg.DefaultLocale),
		users,
		subs,
		recorder,
		channels,
		cfg.ChannelTimeout,
	)

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "notify_online_users",
		Help: "Distinct users with at least one open realtime connection.",
	}, func() float64 { return float64(c.Registry.OnlineUserCount()) })

	return c, nil
}

// Close releases pooled resources.
func (c *Container) Close() {
	if c.pg != nil {
		c.pg.Close()
	}
}
