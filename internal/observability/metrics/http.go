package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueryMetrics instruments the HTTP surface and the answer pipeline. It
// implements usecase.PipelineObserver so degradations and stage timings
// stay visible even though they never fail a request.
type QueryMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	stageDuration    *prometheus.HistogramVec
	stageDegraded    *prometheus.CounterVec
	queryTotal       *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	answerSources    *prometheus.HistogramVec
	answerErrorTotal *prometheus.CounterVec
}

func NewQueryMetrics(service string) *QueryMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsassist",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docsassist",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsassist",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Answer pipeline stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	stageDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "pipeline",
			Name:      "stage_degraded_total",
			Help:      "Total pipeline stages that fell back to a degraded result.",
		},
		[]string{"service", "stage"},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "pipeline",
			Name:      "queries_total",
			Help:      "Total answered queries by outcome kind.",
		},
		[]string{"service", "kind"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsassist",
			Subsystem: "pipeline",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration in seconds by outcome kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind"},
	)
	answerSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsassist",
			Subsystem: "pipeline",
			Name:      "answer_sources",
			Help:      "Distribution of cited sources per successful answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	answerErrorTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsassist",
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Total failed queries by error kind.",
		},
		[]string{"service", "kind"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		stageDuration,
		stageDegraded,
		queryTotal,
		queryDuration,
		answerSources,
		answerErrorTotal,
	)

	return &QueryMetrics{
		registry:         registry,
		service:          service,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		stageDuration:    stageDuration,
		stageDegraded:    stageDegraded,
		queryTotal:       queryTotal,
		queryDuration:    queryDuration,
		answerSources:    answerSources,
		answerErrorTotal: answerErrorTotal,
	}
}

func (m *QueryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *QueryMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/jobs/"):
		return "/v1/jobs/{job_id}"
	default:
		return path
	}
}

// StageCompleted implements usecase.PipelineObserver.
func (m *QueryMetrics) StageCompleted(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
}

// StageDegraded implements usecase.PipelineObserver.
func (m *QueryMetrics) StageDegraded(stage string) {
	m.stageDegraded.WithLabelValues(m.service, stage).Inc()
}

// QueryCompleted implements usecase.PipelineObserver. An empty kind
// means the query was answered; anything else is the error kind.
func (m *QueryMetrics) QueryCompleted(kind string, duration time.Duration) {
	if kind == "" {
		kind = "ok"
	}
	m.queryTotal.WithLabelValues(m.service, kind).Inc()
	m.queryDuration.WithLabelValues(m.service, kind).Observe(duration.Seconds())
	if kind != "ok" {
		m.answerErrorTotal.WithLabelValues(m.service, kind).Inc()
	}
}

func (m *QueryMetrics) RecordAnswerSources(count int) {
	m.answerSources.WithLabelValues(m.service).Observe(float64(count))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
