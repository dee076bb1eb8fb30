package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReindexMetrics instruments the ingestion worker. It implements
// usecase.ReindexObserver.
type ReindexMetrics struct {
	registry *prometheus.Registry
	service  string

	pagesIndexedTotal *prometheus.CounterVec
	pagesSkippedTotal *prometheus.CounterVec
	chunksPerPage     *prometheus.HistogramVec
	jobTotal          *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
}

func NewReindexMetrics(service string) *ReindexMetrics {
	registry := prometheus.NewRegistry()

	pagesIndexedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "worker",
			Name:      "pages_indexed_total",
			Help:      "Total pages indexed by reindex jobs.",
		},
		[]string{"service"},
	)
	pagesSkippedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "worker",
			Name:      "pages_skipped_total",
			Help:      "Total pages skipped by incremental or failing runs.",
		},
		[]string{"service"},
	)
	chunksPerPage := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsassist",
			Subsystem: "worker",
			Name:      "chunks_per_page",
			Help:      "Distribution of chunks produced per indexed page.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "worker",
			Name:      "reindex_jobs_total",
			Help:      "Total finished reindex jobs by status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsassist",
			Subsystem: "worker",
			Name:      "reindex_job_duration_seconds",
			Help:      "Reindex job duration in seconds by status.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(pagesIndexedTotal, pagesSkippedTotal, chunksPerPage, jobTotal, jobDuration)

	return &ReindexMetrics{
		registry:          registry,
		service:           service,
		pagesIndexedTotal: pagesIndexedTotal,
		pagesSkippedTotal: pagesSkippedTotal,
		chunksPerPage:     chunksPerPage,
		jobTotal:          jobTotal,
		jobDuration:       jobDuration,
	}
}

func (m *ReindexMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// PageIndexed implements usecase.ReindexObserver.
func (m *ReindexMetrics) PageIndexed(chunks int) {
	m.pagesIndexedTotal.WithLabelValues(m.service).Inc()
	m.chunksPerPage.WithLabelValues(m.service).Observe(float64(chunks))
}

// PageSkipped implements usecase.ReindexObserver.
func (m *ReindexMetrics) PageSkipped() {
	m.pagesSkippedTotal.WithLabelValues(m.service).Inc()
}

// JobCompleted implements usecase.ReindexObserver.
func (m *ReindexMetrics) JobCompleted(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.jobTotal.WithLabelValues(m.service, status).Inc()
	m.jobDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}
