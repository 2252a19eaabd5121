// Package metrics exports dispatch metrics to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bft-labs/logjam/internal/app"
	"github.com/bft-labs/logjam/internal/domain"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics implements app.SendEventEmitter and app.ConfigErrorEmitter.
type Metrics struct {
	// DispatchTotal counts completed sends by key and result
	DispatchTotal *prometheus.CounterVec

	// BatchSize observes how many events each send carried
	BatchSize *prometheus.HistogramVec

	// DispatchDuration observes sender latency
	DispatchDuration *prometheus.HistogramVec

	// ConfigErrors counts collected configuration errors
	ConfigErrors prometheus.Counter

	// InFlight is the number of sends in progress per key
	InFlight *prometheus.GaugeVec

	// PausedKeys is the size of the paused set
	PausedKeys prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses a private registry
// that nothing scrapes.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		DispatchTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "logjam_dispatch_total",
			Help: "Completed sends by key and result.",
		}, []string{"key", "result"}),

		BatchSize: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logjam_batch_size",
			Help:    "Number of events per send.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}, []string{"key"}),

		DispatchDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logjam_dispatch_duration_seconds",
			Help:    "Histogram of sender latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"key"}),

		ConfigErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "logjam_config_errors_total",
			Help: "Configuration errors collected by controllers.",
		}),

		InFlight: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "logjam_sends_in_flight",
			Help: "Sends currently in progress.",
		}, []string{"key"}),

		PausedKeys: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "logjam_paused_keys",
			Help: "Number of keys in the paused set.",
		}),
	}
}

// OnSendSuccess records a delivered batch.
func (m *Metrics) OnSendSuccess(key domain.Key, count int, duration time.Duration) {
	k := string(key)
	m.DispatchTotal.WithLabelValues(k, ResultSuccess).Inc()
	m.BatchSize.WithLabelValues(k).Observe(float64(count))
	m.DispatchDuration.WithLabelValues(k).Observe(duration.Seconds())
}

// OnSendError records a failed batch.
func (m *Metrics) OnSendError(key domain.Key, err error, count int) {
	k := string(key)
	m.DispatchTotal.WithLabelValues(k, ResultFailure).Inc()
	m.BatchSize.WithLabelValues(k).Observe(float64(count))
}

// OnConfigError records a configuration error.
func (m *Metrics) OnConfigError(key domain.Key, err error) {
	m.ConfigErrors.Inc()
}

// Observe keeps the in-flight and paused gauges in sync with store.
// Gauges are read back from the store on every change, so sends already in
// progress and changes delivered out of order never leave them negative.
// The returned function stops observing.
func (m *Metrics) Observe(store *app.Store) (cancel func()) {
	for _, k := range store.Keys() {
		if n := store.InFlight(k); n > 0 {
			m.InFlight.WithLabelValues(string(k)).Set(float64(n))
		}
	}
	m.PausedKeys.Set(float64(len(store.PausedSet())))
	return store.Subscribe(func(c app.Change) {
		switch c.Kind {
		case app.ChangeSendStart, app.ChangeSendDone:
			m.InFlight.WithLabelValues(string(c.Key)).Set(float64(store.InFlight(c.Key)))
		case app.ChangePause:
			m.PausedKeys.Set(float64(len(store.PausedSet())))
		}
	})
}
