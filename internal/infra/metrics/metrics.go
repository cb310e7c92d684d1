// Package metrics provides Prometheus metrics for the supervisor daemon:
// instance lifecycle, monitor-loop health, adapter call latency, extension
// hook dispatch, and update checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Instances ──────────────────────────────────────────────────────────────

// InstancesTracked reports the number of instances the tracker currently
// believes are running.
var InstancesTracked = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "saba",
	Name:      "instances_tracked",
	Help:      "Number of instances currently tracked as running.",
})

// ServerLifecycleTotal counts start/stop/restart outcomes by module, action,
// and result.
var ServerLifecycleTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "server_lifecycle_total",
	Help:      "Server lifecycle operations by module, action, and result.",
}, []string{"module", "action", "result"})

// ─── Monitor loop ───────────────────────────────────────────────────────────

// MonitorCycleErrors counts monitor-cycle failures (process enumeration
// errors), mirroring the supervisor's own rate-limited log line.
var MonitorCycleErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "monitor_cycle_errors_total",
	Help:      "Total monitor cycle errors.",
})

// MonitorCrashesDetected counts instances the monitor found no longer
// running.
var MonitorCrashesDetected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "monitor_crashes_detected_total",
	Help:      "Total instances found crashed by the monitor loop.",
})

// ─── Adapter ────────────────────────────────────────────────────────────────

// AdapterCallLatency tracks adapter invocation duration in seconds by
// module and operation (start/stop/status/command).
var AdapterCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "saba",
	Name:      "adapter_call_latency_seconds",
	Help:      "Adapter call duration in seconds.",
	Buckets:   prometheus.DefBuckets,
}, []string{"module", "operation"})

// AdapterCallsFailed counts adapter calls that returned an error or a
// success:false result.
var AdapterCallsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "adapter_calls_failed_total",
	Help:      "Total adapter calls that failed.",
}, []string{"module", "operation"})

// ─── Extensions ─────────────────────────────────────────────────────────────

// HookDispatchTotal counts hook dispatches by hook name and whether a
// binding reported handled:true.
var HookDispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "extension_hook_dispatch_total",
	Help:      "Total hook dispatches by hook name and outcome.",
}, []string{"hook", "outcome"})

// ─── Updates ────────────────────────────────────────────────────────────────

// UpdateChecksTotal counts update-check attempts by result.
var UpdateChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "update_checks_total",
	Help:      "Total update checks by result.",
}, []string{"result"})

// ComponentsUpdateAvailable reports how many components currently have a
// newer resolved version than installed.
var ComponentsUpdateAvailable = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "saba",
	Name:      "components_update_available",
	Help:      "Number of components with an update available.",
})

// ─── IPC auth ───────────────────────────────────────────────────────────────

// AuthMismatchTotal counts rejected requests carrying a missing or
// incorrect X-Saba-Token.
var AuthMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "saba",
	Name:      "ipc_auth_mismatch_total",
	Help:      "Total IPC requests rejected for an auth token mismatch.",
})
