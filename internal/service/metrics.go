package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notify_dispatch_duration_seconds",
		Help:    "Duration of one notification dispatch fan-out.",
		Buckets: prometheus.DefBuckets,
	})

	channelResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_channel_results_total",
		Help: "Per-channel delivery results.",
	}, []string{"channel", "status"})

	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_dispatch_failures_total",
		Help: "Dispatches aborted before fan-out (missing template, invalid event).",
	})
)
