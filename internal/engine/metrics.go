package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is ambient sync-cycle observability: it has no effect on
// sync semantics, and an Engine built without one (a nil *Metrics is
// safe to call through, since every call site already guards with
// "if e.cfg.Metrics != nil") behaves identically.
type Metrics struct {
	pushCycles     prometheus.Counter
	pushRows       prometheus.Counter
	pushDuration   prometheus.Histogram
	pullCycles     prometheus.Counter
	pullRows       prometheus.Counter
	pullDuration   prometheus.Histogram
	syncDuration   prometheus.Histogram
	conflictsTotal prometheus.Counter
}

// NewMetrics registers the engine's collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pushCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncmw_push_cycles_total",
			Help: "Number of push cycles completed.",
		}),
		pushRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncmw_push_rows_total",
			Help: "Number of rows pushed to the remote store.",
		}),
		pushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncmw_push_duration_seconds",
			Help:    "Duration of push cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		pullCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncmw_pull_cycles_total",
			Help: "Number of pull cycles completed.",
		}),
		pullRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncmw_pull_rows_total",
			Help: "Number of rows pulled from the remote store.",
		}),
		pullDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncmw_pull_duration_seconds",
			Help:    "Duration of pull cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncmw_sync_duration_seconds",
			Help:    "Duration of full push+pull sync cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncmw_conflicts_total",
			Help: "Number of conflicts detected across all cycles.",
		}),
	}

	reg.MustRegister(m.pushCycles, m.pushRows, m.pushDuration,
		m.pullCycles, m.pullRows, m.pullDuration, m.syncDuration, m.conflictsTotal)

	return m
}

func (m *Metrics) ObservePush(rows int, d time.Duration) {
	m.pushCycles.Inc()
	m.pushRows.Add(float64(rows))
	m.pushDuration.Observe(d.Seconds())
}

func (m *Metrics) ObservePull(rows int, d time.Duration) {
	m.pullCycles.Inc()
	m.pullRows.Add(float64(rows))
	m.pullDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveSync(d time.Duration) {
	m.syncDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveConflicts(n int) {
	m.conflictsTotal.Add(float64(n))
}
