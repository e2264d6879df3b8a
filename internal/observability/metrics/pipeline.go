package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics observes analysis job lifecycle in the api process.
// It satisfies the pipeline observer port.
type PipelineMetrics struct {
	registry *prometheus.Registry
	svc      string

	jobsTotal     *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsInFlight  prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	filesPerJob   prometheus.Histogram
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exin",
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Total analysis jobs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exin",
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "Analysis job duration in seconds by outcome.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "outcome"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "exin",
			Subsystem: "pipeline",
			Name:      "jobs_in_flight",
			Help:      "Number of active analysis jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exin",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-file stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	filesPerJob := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "exin",
			Subsystem: "pipeline",
			Name:      "files_per_job",
			Help:      "Distribution of file counts per job.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, stageDuration, filesPerJob)

	return &PipelineMetrics{
		registry:      registry,
		svc:           service,
		jobsTotal:     jobsTotal,
		jobDuration:   jobDuration,
		jobsInFlight:  jobsInFlight,
		stageDuration: stageDuration,
		filesPerJob:   filesPerJob,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) JobStarted(totalFiles int) {
	m.jobsInFlight.Inc()
	m.filesPerJob.Observe(float64(totalFiles))
}

func (m *PipelineMetrics) JobFinished(outcome string, duration time.Duration) {
	m.jobsInFlight.Dec()
	if outcome == "" {
		outcome = "unknown"
	}
	m.jobsTotal.WithLabelValues(m.svc, outcome).Inc()
	m.jobDuration.WithLabelValues(m.svc, outcome).Observe(duration.Seconds())
}

func (m *PipelineMetrics) StageCompleted(stage string, duration time.Duration) {
	if stage == "" {
		stage = "unknown"
	}
	m.stageDuration.WithLabelValues(m.svc, stage).Observe(duration.Seconds())
}
