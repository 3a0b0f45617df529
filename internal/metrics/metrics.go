package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SyncItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_items_total",
		Help: "Items processed by the sync engines",
	}, []string{"engine", "outcome"})

	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_runs_total",
		Help: "Sync passes by type and result",
	}, []string{"sync_type", "result"})

	SyncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_run_duration_seconds",
		Help:    "Duration of sync passes",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"sync_type"})

	LockAcquireTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lock_acquire_total",
		Help: "Lock acquisition attempts by result",
	}, []string{"result"})

	RemoteErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_errors_total",
		Help: "Failed calls to WooCommerce and BizimHesap",
	}, []string{"remote", "op"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)
