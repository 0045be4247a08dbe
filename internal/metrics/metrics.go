package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "socialfeed",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "socialfeed",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	instructions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Subsystem: "program",
			Name:      "instructions_total",
			Help:      "Total number of processed instructions by outcome code.",
		},
		[]string{"instruction", "code"},
	)

	instructionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "socialfeed",
			Subsystem: "program",
			Name:      "instruction_duration_seconds",
			Help:      "Duration of instruction execution including commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
		},
		[]string{"instruction"},
	)

	feesCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "socialfeed",
			Subsystem: "program",
			Name:      "fees_total",
			Help:      "Native value charged by committed instructions.",
		},
		[]string{"instruction"},
	)

	ledgerSlot = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "socialfeed",
			Subsystem: "ledger",
			Name:      "slot",
			Help:      "Number of committed ledger transactions.",
		},
	)

	ledgerAccounts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "socialfeed",
			Subsystem: "ledger",
			Name:      "accounts",
			Help:      "Accounts held in the ledger arena.",
		},
		[]string{"kind"},
	)

	ledgerBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "socialfeed",
			Subsystem: "ledger",
			Name:      "total_balance",
			Help:      "Sum of all account balances.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		instructions,
		instructionDuration,
		feesCollected,
		ledgerSlot,
		ledgerAccounts,
		ledgerBalance,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordInstruction records the outcome of one executed instruction. code is
// empty on success.
func RecordInstruction(instruction, code string, fee uint64, duration time.Duration) {
	if instruction == "" {
		instruction = "unknown"
	}
	if code == "" {
		code = "ok"
	}
	if duration <= 0 {
		duration = time.Microsecond
	}
	instructions.WithLabelValues(instruction, code).Inc()
	instructionDuration.WithLabelValues(instruction).Observe(duration.Seconds())
	if code == "ok" && fee > 0 {
		feesCollected.WithLabelValues(instruction).Add(float64(fee))
	}
}

// RecordLedgerStats publishes ledger totals.
func RecordLedgerStats(slot uint64, accounts, dataAccounts int, totalBalance uint64) {
	ledgerSlot.Set(float64(slot))
	ledgerAccounts.WithLabelValues("all").Set(float64(accounts))
	ledgerAccounts.WithLabelValues("data").Set(float64(dataAccounts))
	ledgerBalance.Set(float64(totalBalance))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses address path segments so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch {
	case len(parts) == 1:
		return "/" + parts[0]
	case parts[0] == "accounts":
		return "/accounts/:address"
	case parts[0] == "profiles":
		return "/profiles/:owner"
	case parts[0] == "posts":
		return "/posts/:address"
	default:
		return "/" + parts[0]
	}
}
