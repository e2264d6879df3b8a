package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics observes the completion-event consumer.
type WorkerMetrics struct {
	registry *prometheus.Registry

	eventsTotal    *prometheus.CounterVec
	questionCounts *prometheus.HistogramVec
	jobDuration    *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "exin",
			Subsystem: "worker",
			Name:      "completed_events_total",
			Help:      "Total consumed analysis-completed events by status.",
		},
		[]string{"service", "status"},
	)
	questionCounts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exin",
			Subsystem: "worker",
			Name:      "result_question_count",
			Help:      "Distribution of question counts in completed results.",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 200},
		},
		[]string{"service"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "exin",
			Subsystem: "worker",
			Name:      "reported_job_duration_seconds",
			Help:      "Job durations as reported in completed events.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(eventsTotal, questionCounts, jobDuration)

	return &WorkerMetrics{
		registry:       registry,
		eventsTotal:    eventsTotal,
		questionCounts: questionCounts,
		jobDuration:    jobDuration,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) ObserveCompletedEvent(service string, questionCount int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(service, status).Inc()
	if err == nil {
		m.questionCounts.WithLabelValues(service).Observe(float64(questionCount))
		m.jobDuration.WithLabelValues(service).Observe(duration.Seconds())
	}
}
