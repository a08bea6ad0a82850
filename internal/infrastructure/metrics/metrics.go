package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/themepark-booking/internal/infrastructure/resilience"
)

type Metrics struct {
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	breakerState   *prometheus.GaugeVec
	syncedProducts *prometheus.GaugeVec
	tokenRefreshes *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// the binary and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "themepark_adapter_operations_total",
			Help: "Adapter operations by outcome",
		}, []string{"adapter", "operation", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "themepark_adapter_operation_duration_seconds",
			Help:    "Time taken by adapter operations",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 60},
		}, []string{"adapter", "operation"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "themepark_circuit_breaker_open",
			Help: "1 while the adapter's circuit breaker is open, 0.5 half-open, 0 closed",
		}, []string{"adapter"}),
		syncedProducts: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "themepark_synced_products",
			Help: "Products synced on the last run",
		}, []string{"adapter"}),
		tokenRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "themepark_token_refreshes_total",
			Help: "OAuth token fetches by provider",
		}, []string{"provider"}),
	}
}

func (m *Metrics) Observe(adapter, op string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.operations.WithLabelValues(adapter, op, outcome).Inc()
	m.duration.WithLabelValues(adapter, op).Observe(d.Seconds())
}

func (m *Metrics) Synced(adapter string, n int) {
	if m == nil {
		return
	}
	m.syncedProducts.WithLabelValues(adapter).Set(float64(n))
}

func (m *Metrics) TokenRefreshed(provider string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(provider).Inc()
}

// BreakerHook adapts breaker transitions into the state gauge.
func (m *Metrics) BreakerHook() func(name string, from, to resilience.State) {
	return func(name string, _, to resilience.State) {
		if m == nil {
			return
		}
		v := 0.0
		switch to {
		case resilience.StateOpen:
			v = 1
		case resilience.StateHalfOpen:
			v = 0.5
		}
		m.breakerState.WithLabelValues(name).Set(v)
	}
}
