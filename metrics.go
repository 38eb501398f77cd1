package tyrell

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records per-call counters and latency for a Client.
type Metrics struct {
	callsTotal  *prometheus.CounterVec
	latencyMs   *prometheus.HistogramVec
	tokensTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.NewRegistry() in tests to keep registrations isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyrell_calls_total",
			Help: "Total number of Messages API calls made by the client.",
		}, []string{"transport", "model", "status"}),
		latencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tyrell_call_latency_ms",
			Help:    "Call latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		}, []string{"transport", "model", "status"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tyrell_tokens_total",
			Help: "Tokens consumed, by direction.",
		}, []string{"transport", "model", "direction"}),
	}
	reg.MustRegister(m.callsTotal, m.latencyMs, m.tokensTotal)
	return m
}

// ObserveCall records one finished call. usage may be nil when the call failed.
func (m *Metrics) ObserveCall(transport TransportID, model Model, err error, usage *Usage, dur time.Duration) {
	s := callStatus(err)
	m.callsTotal.WithLabelValues(transport.String(), model.String(), s).Inc()
	m.latencyMs.WithLabelValues(transport.String(), model.String(), s).Observe(float64(dur.Milliseconds()))
	if usage != nil {
		m.tokensTotal.WithLabelValues(transport.String(), model.String(), "input").Add(float64(max(usage.InputTokens, 0)))
		m.tokensTotal.WithLabelValues(transport.String(), model.String(), "output").Add(float64(max(usage.OutputTokens, 0)))
	}
}

// callStatus maps an outcome to a low-cardinality label: "ok", the HTTP status, or an error class.
func callStatus(err error) string {
	if err == nil {
		return "ok"
	}
	var transportErr *TransportError
	switch {
	case errors.As(err, &transportErr) && transportErr.StatusCode > 0:
		return strconv.Itoa(transportErr.StatusCode)
	case errors.Is(err, ErrNetwork):
		return "network"
	case IsDecodeError(err):
		return "decode"
	default:
		return "error"
	}
}
