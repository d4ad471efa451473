// Package metrics defines and registers the custom Prometheus metrics for the
// dashboard service. It is the single source of truth for metric names,
// labels, and help strings.
//
// All collectors are registered with the default registry on package init via
// promauto, so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dashboards"

// ── Access metrics ────────────────────────────────────────────────────────────

// AccessDecisionsTotal counts resolver decisions made by the HTTP layer.
// Labels:
//   - mode: "view" or "edit"
//   - result: "granted", "denied" or "error"
//   - reason: the decision reason (e.g. "admin", "member", "denied")
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of project access decisions.",
	},
	[]string{"mode", "result", "reason"},
)

// ── Dashboard metrics ─────────────────────────────────────────────────────────

// DashboardReadsTotal counts dashboard reads by outcome.
// Label:
//   - result: "ok", "not_modified" or "error"
var DashboardReadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reads_total",
		Help:      "Total number of dashboard reads, labelled by result.",
	},
	[]string{"result"},
)

// DashboardWritesTotal counts dashboard writes by outcome.
// Label:
//   - result: "ok", "conflict", "invalid" or "error"
var DashboardWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "writes_total",
		Help:      "Total number of dashboard writes, labelled by result.",
	},
	[]string{"result"},
)

// ── Bootstrap metrics ─────────────────────────────────────────────────────────

// BootstrapProjectsTotal counts projects handled by bulk bootstrap runs.
// Label:
//   - result: "created", "existing" or "failed"
var BootstrapProjectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_projects_total",
		Help:      "Total number of projects processed by dashboard bootstrap runs.",
	},
	[]string{"result"},
)

// WorkerQueueDepth tracks the number of jobs waiting in each dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var WorkerQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_queue_depth",
		Help:      "Current number of jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// BootstrapDuration measures a whole bootstrap run.
var BootstrapDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bootstrap_duration_seconds",
		Help:      "Duration of bulk dashboard bootstrap runs.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
	},
)
