// Package metrics provides Prometheus-based metrics collection for nmapx.
// Metrics live on a private registry and are exported per run as a
// node_exporter textfile next to the scan artifacts.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// Namespace for all nmapx metrics
	namespace = "nmapx"

	// Subsystems
	subsystemPhase = "phase"
	subsystemRun   = "run"
)

// PrometheusMetrics holds all Prometheus metric collectors
type PrometheusMetrics struct {
	// Phase metrics
	phasesTotal     *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	portsDiscovered *prometheus.CounterVec
	activeScans     prometheus.Gauge

	// Run metrics
	runsTotal       *prometheus.CounterVec
	lastRunDuration prometheus.Gauge
	targetsTotal    prometheus.Counter

	registry *prometheus.Registry
}

// NewPrometheusMetrics creates a new Prometheus metrics instance with all collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	pm := &PrometheusMetrics{
		registry: registry,
	}

	pm.initPhaseMetrics()
	pm.initRunMetrics()
	pm.registerMetrics()

	registry.MustRegister(collectors.NewGoCollector())

	return pm
}

// initPhaseMetrics initializes per (target, phase) metrics
func (pm *PrometheusMetrics) initPhaseMetrics() {
	pm.phasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPhase,
			Name:      "total",
			Help:      "Total number of (target, phase) pairs by final state",
		},
		[]string{"phase", "state"},
	)

	pm.phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystemPhase,
			Name:      "duration_seconds",
			Help:      "Duration of nmap invocations in seconds",
			Buckets:   []float64{1, 5, 30, 60, 300, 900, 1800, 3600, 7200, 14400},
		},
		[]string{"phase"},
	)

	pm.portsDiscovered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemPhase,
			Name:      "open_ports_total",
			Help:      "Total number of open port records parsed from phase output",
		},
		[]string{"phase"},
	)

	pm.activeScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemPhase,
			Name:      "active",
			Help:      "Number of nmap processes currently running",
		},
	)
}

// initRunMetrics initializes whole-run metrics
func (pm *PrometheusMetrics) initRunMetrics() {
	pm.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRun,
			Name:      "total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	pm.lastRunDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemRun,
			Name:      "last_duration_seconds",
			Help:      "Duration of the most recent pipeline run in seconds",
		},
	)

	pm.targetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemRun,
			Name:      "targets_total",
			Help:      "Total number of targets processed",
		},
	)
}

// registerMetrics registers all metrics with the registry
func (pm *PrometheusMetrics) registerMetrics() {
	pm.registry.MustRegister(
		pm.phasesTotal,
		pm.phaseDuration,
		pm.portsDiscovered,
		pm.activeScans,
		pm.runsTotal,
		pm.lastRunDuration,
		pm.targetsTotal,
	)
}

// GetRegistry returns the Prometheus registry
func (pm *PrometheusMetrics) GetRegistry() *prometheus.Registry {
	return pm.registry
}

// ObservePhase records the final state of one (target, phase) pair
func (pm *PrometheusMetrics) ObservePhase(phase, state string, duration time.Duration) {
	pm.phasesTotal.WithLabelValues(phase, state).Inc()
	if duration > 0 {
		pm.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	}
}

// AddOpenPorts records open port records parsed from a phase's output
func (pm *PrometheusMetrics) AddOpenPorts(phase string, count int) {
	if count > 0 {
		pm.portsDiscovered.WithLabelValues(phase).Add(float64(count))
	}
}

// ScanStarted increments the active scan gauge
func (pm *PrometheusMetrics) ScanStarted() {
	pm.activeScans.Inc()
}

// ScanFinished decrements the active scan gauge
func (pm *PrometheusMetrics) ScanFinished() {
	pm.activeScans.Dec()
}

// ObserveRun records a finished pipeline run
func (pm *PrometheusMetrics) ObserveRun(status string, targets int, duration time.Duration) {
	pm.runsTotal.WithLabelValues(status).Inc()
	pm.targetsTotal.Add(float64(targets))
	pm.lastRunDuration.Set(duration.Seconds())
}

// WriteTextfile writes every metric in the text exposition format to path,
// atomically, so a node_exporter textfile collector can pick it up.
func (pm *PrometheusMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, pm.GetRegistry())
}

var (
	globalMetrics *PrometheusMetrics
	globalOnce    sync.Once
)

// GetGlobalMetrics returns the process-wide metrics instance
func GetGlobalMetrics() *PrometheusMetrics {
	globalOnce.Do(func() {
		globalMetrics = NewPrometheusMetrics()
	})
	return globalMetrics
}
