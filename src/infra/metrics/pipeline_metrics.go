package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess         = "success"
	OutcomeInvalidRequest  = "invalid_request"
	OutcomeStoreError      = "store_error"
	OutcomeGenerationError = "generation_error"
	OutcomeUnknownError    = "unknown_error"
)

// PipelineMetrics holds the Prometheus instruments of the aggregation
// pipeline. A nil *PipelineMetrics is valid and records nothing.
type PipelineMetrics struct {
	runs           *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	eventsIngested prometheus.Counter
	rollupsWritten prometheus.Counter
}

func NewPipelineMetrics(registerer prometheus.Registerer) *PipelineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invitationmetrics_pipeline_runs_total",
		Help: "Aggregation pipeline runs by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invitationmetrics_pipeline_duration_seconds",
		Help:    "Aggregation pipeline latency by outcome.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})
	eventsIngested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invitationmetrics_events_ingested_total",
		Help: "Invitation events submitted to the store, repeated ingestions included.",
	})
	rollupsWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invitationmetrics_rollups_written_total",
		Help: "Daily rollup documents rewritten by the pipeline.",
	})

	registerer.MustRegister(runs, duration, eventsIngested, rollupsWritten)

	return &PipelineMetrics{
		runs:           runs,
		duration:       duration,
		eventsIngested: eventsIngested,
		rollupsWritten: rollupsWritten,
	}
}

func (m *PipelineMetrics) ObserveRun(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *PipelineMetrics) AddEventsIngested(n int) {
	if m == nil {
		return
	}
	m.eventsIngested.Add(float64(n))
}

func (m *PipelineMetrics) AddRollupsWritten(n int) {
	if m == nil {
		return
	}
	m.rollupsWritten.Add(float64(n))
}

// RunsCounter exposes the run counter of one outcome.
func (m *PipelineMetrics) RunsCounter(outcome string) prometheus.Counter {
	return m.runs.WithLabelValues(outcome)
}
