package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters the core emits for the observability collaborator.
// The scrape surface lives outside this module; callers register the collectors
// on whatever registry backs their /metrics endpoint.
type Metrics struct {
	JobRuns   *prometheus.CounterVec
	Incidents *prometheus.CounterVec
}

// NewMetrics creates the counter set and registers it on the given registerer.
// A nil registerer yields unregistered (but usable) counters, which is what
// tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowboard_job_runs_total",
				Help: "Total job runs by job and status",
			},
			[]string{"job", "status"},
		),
		Incidents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowboard_incidents_total",
				Help: "Total incidents by state",
			},
			[]string{"state"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.JobRuns, m.Incidents)
	}
	return m
}

// RecordJobRun counts one run (or pipeline step) outcome.
func (m *Metrics) RecordJobRun(job, status string) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
}

// RecordIncident counts one incident state transition.
func (m *Metrics) RecordIncident(state string) {
	if m == nil {
		return
	}
	m.Incidents.WithLabelValues(state).Inc()
}
