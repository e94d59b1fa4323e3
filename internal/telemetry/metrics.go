package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	// UploadsAccepted counts uploads that were stored and enqueued.
	UploadsAccepted = prometheus.NewCounter(prometheus.CounterOpts{Name: "intake_uploads_accepted_total", Help: "Upload requests stored and enqueued"})
	// UploadsRejected counts uploads rejected by validation.
	UploadsRejected = prometheus.NewCounter(prometheus.CounterOpts{Name: "intake_uploads_rejected_total", Help: "Upload requests rejected by validation"})
	// JobsAcked counts jobs that completed and were acknowledged.
	JobsAcked = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "worker_jobs_acked_total", Help: "Jobs acknowledged after successful processing"}, []string{"task_type"})
	// JobsRequeued counts jobs returned to the queue for redelivery.
	JobsRequeued = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "worker_jobs_requeued_total", Help: "Jobs negative-acknowledged with requeue"}, []string{"task_type"})
	// JobsDropped counts jobs rejected permanently.
	JobsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "worker_jobs_dropped_total", Help: "Jobs negative-acknowledged without requeue"}, []string{"task_type"})
	// JobDuration observes end-to-end processing time per job.
	JobDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "worker_job_duration_seconds",
		Help:    "End-to-end job processing time",
		Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
	})
	// QueueDepth tracks pending messages as last observed.
	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{Name: "queue_pending_messages", Help: "Pending messages in the job queue"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			UploadsAccepted,
			UploadsRejected,
			JobsAcked,
			JobsRequeued,
			JobsDropped,
			JobDuration,
			QueueDepth,
		)
	})
	return promhttp.Handler()
}
