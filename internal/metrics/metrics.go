package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the indexer's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	EventsHandled   *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	ReadFailures    *prometheus.CounterVec
	EntitiesFlush   prometheus.Counter
	BatchDuration   prometheus.Histogram
	LastBlock       prometheus.Gauge
	PoolsDiscovered prometheus.Counter
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsHandled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscope_events_handled_total",
				Help: "Events applied to the entity store",
			},
			[]string{"event"},
		),
		EventsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscope_events_skipped_total",
				Help: "Events dropped because a referenced entity was missing",
			},
			[]string{"event", "reason"},
		),
		DecodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscope_decode_errors_total",
				Help: "Logs that could not be decoded",
			},
			[]string{"stage"},
		),
		ReadFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultscope_contract_read_failures_total",
				Help: "Contract reads that reverted and fell back to defaults",
			},
			[]string{"method"},
		),
		EntitiesFlush: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultscope_entities_flushed_total",
			Help: "Entity records committed to the store",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vaultscope_batch_duration_seconds",
			Help:    "Time to fetch, map and commit one block range",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vaultscope_last_committed_block",
			Help: "Last block whose entities were committed",
		}),
		PoolsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "vaultscope_pools_discovered_total",
			Help: "Pools added to the watched address set",
		}),
	}
}

func (m *Metrics) Handled(event string) {
	if m == nil {
		return
	}
	m.EventsHandled.WithLabelValues(event).Inc()
}

func (m *Metrics) Skipped(event, reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(event, reason).Inc()
}

func (m *Metrics) DecodeError(stage string) {
	if m == nil {
		return
	}
	m.DecodeErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) ReadFailed(method string) {
	if m == nil {
		return
	}
	m.ReadFailures.WithLabelValues(method).Inc()
}

// Committed records a successful batch commit.
func (m *Metrics) Committed(records int, block uint64, seconds float64) {
	if m == nil {
		return
	}
	m.EntitiesFlush.Add(float64(records))
	m.LastBlock.Set(float64(block))
	m.BatchDuration.Observe(seconds)
}

func (m *Metrics) PoolDiscovered() {
	if m == nil {
		return
	}
	m.PoolsDiscovered.Inc()
}
