package client

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records outbound call counts and latencies per service/operation.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics builds the collectors and registers them on reg. A nil reg
// returns collectors that are never exported.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "backoffice",
				Subsystem: "client",
				Name:      "calls_total",
				Help:      "Outbound back-office API calls by outcome.",
			},
			[]string{"service", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "backoffice",
				Subsystem: "client",
				Name:      "call_duration_seconds",
				Help:      "Duration of outbound back-office API calls.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"service", "op"},
		),
	}
	if reg == nil {
		return m, nil
	}
	if err := reg.Register(m.calls); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		m.calls = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.duration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		m.duration = already.ExistingCollector.(*prometheus.HistogramVec)
	}
	return m, nil
}

func (m *Metrics) observe(service, op string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(service, op, outcome(err)).Inc()
	m.duration.WithLabelValues(service, op).Observe(time.Since(started).Seconds())
}

func outcome(err error) string {
	var (
		business *BusinessError
		httpErr  *HTTPError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.As(err, &business):
		return "rejected"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "error"
	}
}
