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

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal          *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	queryPartitionSize  *prometheus.HistogramVec
	queryNoValidTotal   *prometheus.CounterVec
	themesIdentified    *prometheus.HistogramVec
	themeConflictsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dra",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dra",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dra",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dra",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total completed query requests by outcome.",
		},
		[]string{"service", "endpoint", "status"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dra",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	queryPartitionSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dra",
			Subsystem: "query",
			Name:      "partition_documents",
			Help:      "Distribution of requested documents per query by partition.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "partition"},
	)
	queryNoValidTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dra",
			Subsystem: "query",
			Name:      "no_valid_responses_total",
			Help:      "Queries where every document partition failed or was empty.",
		},
		[]string{"service", "endpoint"},
	)
	themesIdentified := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dra",
			Subsystem: "themes",
			Name:      "identified",
			Help:      "Distribution of themes identified per synthesis call.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "endpoint"},
	)
	themeConflictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dra",
			Subsystem: "themes",
			Name:      "version_conflicts_total",
			Help:      "Theme updates rejected by optimistic concurrency.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		queryPartitionSize,
		queryNoValidTotal,
		themesIdentified,
		themeConflictsTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queryTotal:          queryTotal,
		queryDuration:       queryDuration,
		queryPartitionSize:  queryPartitionSize,
		queryNoValidTotal:   queryNoValidTotal,
		themesIdentified:    themesIdentified,
		themeConflictsTotal: themeConflictsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
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
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	case strings.HasPrefix(path, "/v1/themes/") && path != "/v1/themes/analyze":
		return "/v1/themes/{theme_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordQuery(service, endpoint, status string, textDocs, imageDocs int, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.queryTotal.WithLabelValues(service, endpoint, status).Inc()
	m.queryDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	m.queryPartitionSize.WithLabelValues(service, "text").Observe(float64(textDocs))
	m.queryPartitionSize.WithLabelValues(service, "image").Observe(float64(imageDocs))
}

func (m *HTTPServerMetrics) RecordNoValidResponses(service, endpoint string) {
	m.queryNoValidTotal.WithLabelValues(service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordThemesIdentified(service, endpoint string, count int) {
	m.themesIdentified.WithLabelValues(service, endpoint).Observe(float64(count))
}

func (m *HTTPServerMetrics) RecordThemeConflict(service string) {
	m.themeConflictsTotal.WithLabelValues(service).Inc()
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
