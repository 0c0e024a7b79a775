// Package metrics exposes Prometheus collectors for ledger activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFault    = "fault"
)

// Metrics holds the ledger collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	silverMoved *prometheus.CounterVec
	exportRuns  *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "silverledger",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Ledger operations by outcome.",
			},
			[]string{"op", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "silverledger",
				Subsystem: "ledger",
				Name:      "operation_duration_seconds",
				Help:      "Duration of ledger operations including the transaction.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
			},
			[]string{"op"},
		),
		silverMoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "silverledger",
				Subsystem: "ledger",
				Name:      "silver_moved_total",
				Help:      "Silver moved by committed operations.",
			},
			[]string{"op"},
		),
		exportRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "silverledger",
				Subsystem: "export",
				Name:      "runs_total",
				Help:      "Table export runs by outcome.",
			},
			[]string{"result"},
		),
		httpReqs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "silverledger",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served by the daemon.",
			},
			[]string{"path", "status"},
		),
	}
	reg.MustRegister(m.operations, m.duration, m.silverMoved, m.exportRuns, m.httpReqs)
	return m
}

// NewRegistry returns a registry preloaded with process and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return reg
}

// ObserveOperation records one ledger operation. amount is only counted when
// the operation committed.
func (m *Metrics) ObserveOperation(op, result string, amount int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	if result == ResultOK && amount > 0 {
		m.silverMoved.WithLabelValues(op).Add(float64(amount))
	}
}

// ObserveExport records one export run.
func (m *Metrics) ObserveExport(err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultFault
	}
	m.exportRuns.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler exposing everything gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// InstrumentHandler counts requests by path and status. Paths outside the
// daemon's routes share the "other" label.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.httpReqs.WithLabelValues(canonicalPath(r.URL.Path), strconv.Itoa(rec.status)).Inc()
	})
}

func canonicalPath(raw string) string {
	switch raw {
	case "/metrics", "/healthz":
		return raw
	default:
		return "other"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
