// Package metrics exposes reconciliation counters through Prometheus.
//
// A nil *Recorder is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowstate"

// Recorder holds the reconciliation collectors.
type Recorder struct {
	rows     *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them on reg.
// Pass prometheus.NewRegistry() in tests to avoid global state.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "rows_total",
			Help:      "Rows written by reconciliation, by table and action.",
		}, []string{"table", "action"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconciliation calls, by table and result.",
		}, []string{"table", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Wall time of one reconciliation call including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),
	}

	for _, c := range []prometheus.Collector{r.rows, r.runs, r.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveRun records the outcome of one reconciliation call. Row counts are
// only added when the call succeeded, since a failed call rolled back.
func (r *Recorder) ObserveRun(table string, inserted, updated, deleted int, err error, d time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.runs.WithLabelValues(table, result).Inc()
	r.duration.WithLabelValues(table).Observe(d.Seconds())
	if err != nil {
		return
	}
	r.rows.WithLabelValues(table, "insert").Add(float64(inserted))
	r.rows.WithLabelValues(table, "update").Add(float64(updated))
	r.rows.WithLabelValues(table, "delete").Add(float64(deleted))
}
