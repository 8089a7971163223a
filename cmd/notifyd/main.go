// Command notifyd runs the service-desk notification dispatcher: websocket
// presence, multi-channel fan-out and the REST/NATS ingress around them.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsconsumer "github.com/servicedeskhq/notify/internal/adapter/events/nats"
	"github.com/servicedeskhq/notify/internal/app"
	"github.com/servicedeskhq/notify/internal/bootstrap"
	"github.com/servicedeskhq/notify/internal/config"
	"github.com/servicedeskhq/notify/internal/pkg/logger"
	httptransport "github.com/servicedeskhq/notify/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := bootstrap.InitTracing(ctx, cfg.OTLPEndpoint, "notifyd")
	if err != nil {
		log.Error("init tracing", slog.Any("error", err))
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg)
	if err != nil {
		log.Error("build container", slog.Any("error", err))
		os.Exit(1)
	}
	defer container.Close()

	var consumer *natsconsumer.Consumer
	if cfg.NATSURL != "" {
		consumer, err = natsconsumer.NewConsumer(cfg.NATSURL, container.Dispatcher, 3*cfg.ChannelTimeout)
		if err != nil {
			log.Error("connect nats", slog.Any("error", err))
			os.Exit(1)
		}
		if err := consumer.Start(); err != nil {
			log.Error("subscribe nats", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("nats ingress started", slog.String("subject", natsconsumer.EventSubject))
	}

	handler := httptransport.NewHandler(container.Dispatcher, container.Registry)
	router := httptransport.NewRouter(handler, container.Hub, func() map[string]bool {
		checks := map[string]bool{"http": true}
		if consumer != nil {
			checks["nats"] = consumer.IsConnected()
		}
		return checks
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Close()
	}
	container.Hub.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", slog.Any("error", err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown", slog.Any("error", err))
	}
}
