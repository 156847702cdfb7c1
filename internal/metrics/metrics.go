package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "cpamm"
	subsystem = "pool"
)

// Metrics holds the pool engine collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	DepositsTotal    *prometheus.CounterVec
	DepositDuration  prometheus.Histogram
	LPMinted         *prometheus.CounterVec
	PoolReserves     *prometheus.GaugeVec
	LPSupply         *prometheus.GaugeVec
	PoolsInitialized prometheus.Counter
}

// New registers the collectors on reg, or on a fresh registry when reg is nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DepositsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "deposits_total",
				Help:      "Deposit attempts by outcome",
			},
			[]string{"outcome"},
		),
		DepositDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "deposit_duration_seconds",
				Help:      "Time spent processing a deposit",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
			},
		),
		LPMinted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_minted_total",
				Help:      "LP units minted by pool",
			},
			[]string{"pool"},
		),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reserves",
				Help:      "Vault balances after the last commit",
			},
			[]string{"pool", "asset"},
		),
		LPSupply: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lp_supply",
				Help:      "Outstanding LP units after the last commit",
			},
			[]string{"pool"},
		),
		PoolsInitialized: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pools_initialized_total",
				Help:      "Pools created",
			},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveDeposit(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DepositsTotal.WithLabelValues(outcome).Inc()
	m.DepositDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordMint(pool string, lp uint64) {
	if m == nil {
		return
	}
	m.LPMinted.WithLabelValues(pool).Add(float64(lp))
}

func (m *Metrics) RecordState(pool, assetX, assetY string, reserveX, reserveY, supply uint64) {
	if m == nil {
		return
	}
	m.PoolReserves.WithLabelValues(pool, assetX).Set(float64(reserveX))
	m.PoolReserves.WithLabelValues(pool, assetY).Set(float64(reserveY))
	m.LPSupply.WithLabelValues(pool).Set(float64(supply))
}

func (m *Metrics) RecordPoolInitialized() {
	if m == nil {
		return
	}
	m.PoolsInitialized.Inc()
}
