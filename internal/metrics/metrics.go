// Package metrics exports keeper activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

const namespace = "keeper"

// Metrics satisfies scheduler.Observer.
type Metrics struct {
	reg *prometheus.Registry

	probesTotal   *prometheus.CounterVec
	reportsTotal  *prometheus.CounterVec
	probeLatency  prometheus.Histogram
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	monitors      prometheus.Gauge
	lastCycle     prometheus.Gauge
}

// NewMetrics registers the keeper collectors on reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := &Metrics{
		reg: reg,
		// - Labels:
		//   - state: UP or DOWN
		//   - status_code: final HTTP status, 0 when no response arrived
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probes_total",
			Help:      "Probes performed, by outcome.",
		}, []string{"state", "status_code"}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Ledger submissions, by outcome (recorded, rejected, unreachable).",
		}, []string{"outcome"}),
		probeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_latency_seconds",
			Help:      "Time to final probe response or failure.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scan cycles run, by result (ok, list_failed).",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one scan cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		monitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitors",
			Help:      "Monitors listed by the most recent successful cycle.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Start time of the most recent cycle.",
		}),
	}
	reg.MustRegister(m.probesTotal, m.reportsTotal, m.probeLatency, m.cyclesTotal, m.cycleDuration, m.monitors, m.lastCycle)
	return m
}

func (m *Metrics) ObserveMonitor(r domain.MonitorResult) {
	m.probesTotal.WithLabelValues(r.Ping.State(), strconv.Itoa(r.HTTPStatus)).Inc()
	m.reportsTotal.WithLabelValues(r.Report.Status.String()).Inc()
	m.probeLatency.Observe(r.LatencyMS / 1000)
}

func (m *Metrics) ObserveCycle(s domain.CycleSummary) {
	m.lastCycle.Set(float64(s.StartedAt.Unix()))
	m.cycleDuration.Observe(s.Duration.Seconds())
	if s.ListFailed {
		m.cyclesTotal.WithLabelValues("list_failed").Inc()
		return
	}
	m.cyclesTotal.WithLabelValues("ok").Inc()
	m.monitors.Set(float64(s.Total))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
