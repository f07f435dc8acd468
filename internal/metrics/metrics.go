// Package metrics метрики Prometheus движка хранения.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wealthtracker_storage"

// Значения метки result для Operations
const (
	ResultOK       = "ok"
	ResultFallback = "fallback"
	ResultMiss     = "miss"
	ResultError    = "error"
)

var (
	defaultOnce     sync.Once
	defaultInstance *Metrics
)

// Metrics считает работу движка хранения. nil *Metrics допустим и ничего не пишет.
type Metrics struct {
	Operations      *prometheus.CounterVec // wealthtracker_storage_operations_total{op,result}
	LegacyFallbacks *prometheus.CounterVec // wealthtracker_storage_legacy_fallbacks_total{op}
	DecryptFailures prometheus.Counter
	SweptRecords    *prometheus.CounterVec // wealthtracker_storage_swept_records_total{table}
	MigratedRecords prometheus.Counter
	Degraded        prometheus.Gauge
}

// New создает метрики и регистрирует их в registry.
// При nil registry метрики не регистрируются.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Facade operations by outcome",
		}, []string{"op", "result"}),

		LegacyFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "legacy_fallbacks_total",
			Help:      "Operations served by the legacy store because the durable store failed",
		}, []string{"op"}),

		DecryptFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Records that failed to decrypt on read",
		}),

		SweptRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_records_total",
			Help:      "Expired records removed by the sweep",
		}, []string{"table"}),

		MigratedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrated_records_total",
			Help:      "Legacy entries transferred into the durable table",
		}),

		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "degraded",
			Help:      "1 when the durable store is unavailable and only the legacy store is used",
		}),
	}
}

// Default общий для процесса набор, зарегистрированный в реестре по умолчанию
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultInstance = New(prometheus.DefaultRegisterer)
	})
	return defaultInstance
}

func (m *Metrics) Op(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) Fallback(op string) {
	if m == nil {
		return
	}
	m.LegacyFallbacks.WithLabelValues(op).Inc()
}

func (m *Metrics) DecryptFailure() {
	if m == nil {
		return
	}
	m.DecryptFailures.Inc()
}

func (m *Metrics) Swept(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptRecords.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) Migrated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MigratedRecords.Add(float64(n))
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.Degraded.Set(1)
	} else {
		m.Degraded.Set(0)
	}
}
