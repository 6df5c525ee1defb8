package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the orchestrator's scan lifecycle as Prometheus
// collectors (domain-stack wiring per SPEC_FULL.md; grounded in the
// jordigilh-kubernaut example's prometheus/client_golang usage).
var (
	scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditor_scans_total",
		Help: "Total scans by terminal status.",
	}, []string{"status"})

	activeScans = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auditor_active_scans",
		Help: "Scans currently running.",
	})

	checksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditor_checks_total",
		Help: "Total checks evaluated, by result.",
	}, []string{"result"})

	scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "auditor_scan_duration_seconds",
		Help:    "Scan wall-clock duration.",
		Buckets: prometheus.DefBuckets,
	})
)

// Registry is the collector registry the HTTP surface's /metrics
// endpoint should serve. A dedicated registry (rather than the global
// default) keeps orchestrator tests from colliding on re-registration.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(scansTotal, activeScans, checksTotal, scanDuration)
}
