// Package metrics exposes Prometheus instrumentation for the session keeper:
// probe outcomes and latency, persistence attempts, and per-account liveness.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProbesTotal counts probe outcomes, labeled by outcome kind.
	ProbesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keeper_probes_total",
		Help: "Total number of session probes by outcome",
	}, []string{"outcome"}) // alive_unchanged | alive_rotated | dead | failed

	ProbeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "keeper_probe_duration_seconds",
		Help:    "Session probe latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
	})

	// PersistTotal counts persistence attempts, labeled by trigger and result.
	PersistTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keeper_persist_total",
		Help: "Total number of document persistence attempts",
	}, []string{"trigger", "result"}) // trigger = rotation | safety_net | command

	LoadTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "keeper_load_total",
		Help: "Total number of document load attempts",
	}, []string{"result"})

	// DeadAccounts tracks accounts whose session currently redirects to login.
	DeadAccounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keeper_dead_accounts",
		Help: "Current number of accounts with a dead session",
	})

	Accounts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keeper_accounts",
		Help: "Number of accounts in the loaded document",
	})

	LastSyncTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keeper_last_sync_timestamp_seconds",
		Help: "Unix time of the last successful persistence",
	})
)

func init() {
	prometheus.MustRegister(
		ProbesTotal,
		ProbeDuration,
		PersistTotal,
		LoadTotal,
		DeadAccounts,
		Accounts,
		LastSyncTimestamp,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
