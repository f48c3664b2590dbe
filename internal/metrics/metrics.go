// Package metrics exposes Prometheus counters for the background workers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	dispatch   *prometheus.CounterVec
	actions    *prometheus.CounterVec
	metricRows prometheus.Counter
	notified   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outreach",
			Name:      "dispatch_messages_total",
			Help:      "Due messages handled by the dispatch worker, by outcome.",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outreach",
			Name:      "linkedin_action_ops_total",
			Help:      "Action queue operations, by op and result.",
		}, []string{"op", "result"}),
		metricRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outreach",
			Name:      "daily_metric_rows_upserted_total",
			Help:      "Daily metric rows written by the aggregator.",
		}),
		notified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outreach",
			Name:      "due_action_notifications_total",
			Help:      "Accounts notified about due actions.",
		}),
	}
	reg.MustRegister(m.dispatch, m.actions, m.metricRows, m.notified)
	return m
}

// The recorders below accept a nil receiver so callers may run without metrics.

func (m *Metrics) DispatchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.dispatch.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ActionOp(op, result string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(op, result).Inc()
}

func (m *Metrics) MetricRowsUpserted(n int) {
	if m == nil {
		return
	}
	m.metricRows.Add(float64(n))
}

func (m *Metrics) AccountsNotified(n int) {
	if m == nil {
		return
	}
	m.notified.Add(float64(n))
}
