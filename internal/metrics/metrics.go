// Package metrics exposes planning pass counters to Prometheus.
package metrics

import (
	"time"

	"github.com/amsen20/leovnf/logging"
	"github.com/prometheus/client_golang/prometheus"
)

var log = logging.Get()

const namespace = "leovnf"

type Metrics struct {
	Passes           *prometheus.CounterVec
	PassDuration     *prometheus.HistogramVec
	ProviderFailures *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A collector that is
// already registered there is reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Planning passes by operation and outcome",
		}, []string{"operation", "outcome"}),
		PassDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of planning passes",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"operation"}),
		ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_failures_total",
			Help:      "Failed external provider queries",
		}, []string{"provider"}),
	}

	m.Passes = register(reg, m.Passes).(*prometheus.CounterVec)
	m.PassDuration = register(reg, m.PassDuration).(*prometheus.HistogramVec)
	m.ProviderFailures = register(reg, m.ProviderFailures).(*prometheus.CounterVec)

	return m
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		log.Err(err).Msg("could not register collector")
	}

	return c
}

func (m *Metrics) ObservePass(operation string, outcome string, elapsed time.Duration) {
	m.Passes.WithLabelValues(operation, outcome).Inc()
	m.PassDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ProviderFailure(provider string) {
	m.ProviderFailures.WithLabelValues(provider).Inc()
}
