package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpResponseSize     *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Recognition metrics
	recognitionsTotal *prometheus.CounterVec
	uploadSize        prometheus.Histogram
	ocrBlocksTotal    prometheus.Counter

	// Engine metrics
	engineDuration  *prometheus.HistogramVec
	engineErrors    *prometheus.CounterVec
	extractionReady prometheus.Gauge

	// Rate limiting metrics
	rateLimitHitsTotal *prometheus.CounterVec

	// System metrics
	systemUptime prometheus.Gauge
}

// NewMetrics creates all metrics on a private registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocr_gateway_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path", "status"},
		),
		httpResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocr_gateway_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ocr_gateway_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		recognitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_gateway_recognitions_total",
				Help: "Total number of recognition requests by outcome",
			},
			[]string{"outcome"},
		),
		uploadSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ocr_gateway_upload_size_bytes",
				Help:    "Size of uploaded documents in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		ocrBlocksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ocr_gateway_ocr_blocks_total",
				Help: "Total number of recognized OCR word blocks",
			},
		),

		engineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ocr_gateway_engine_duration_seconds",
				Help:    "Engine call latency in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"engine", "status"},
		),
		engineErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_gateway_engine_errors_total",
				Help: "Total number of engine failures",
			},
			[]string{"engine"},
		),
		extractionReady: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ocr_gateway_extraction_ready",
				Help: "1 when the content extraction engine answered its last probe",
			},
		),

		rateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ocr_gateway_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"limiter_type"},
		),

		systemUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ocr_gateway_system_uptime_seconds",
				Help: "System uptime in seconds",
			},
		),
	}
}

// MetricsMiddleware returns a Fiber middleware that collects HTTP metrics
func (m *Metrics) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		method := c.Method()

		err := c.Next()

		// Label by the matched route so unknown paths cannot grow the series
		path := normalizePath(c.Route().Path)
		duration := time.Since(start).Seconds()
		status := statusClass(c.Response().StatusCode())
		responseSize := len(c.Response().Body())

		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		m.httpResponseSize.WithLabelValues(method, path, status).Observe(float64(responseSize))

		return err
	}
}

// ObserveEngine records one engine call
func (m *Metrics) ObserveEngine(engine string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
		m.engineErrors.WithLabelValues(engine).Inc()
	}
	m.engineDuration.WithLabelValues(engine, status).Observe(duration.Seconds())
}

// ObserveRecognition records one recognition request
func (m *Metrics) ObserveRecognition(outcome string, uploadBytes int64, blocks int) {
	m.recognitionsTotal.WithLabelValues(outcome).Inc()
	if uploadBytes > 0 {
		m.uploadSize.Observe(float64(uploadBytes))
	}
	if blocks > 0 {
		m.ocrBlocksTotal.Add(float64(blocks))
	}
}

// SetExtractionReady records the last readiness probe result
func (m *Metrics) SetExtractionReady(ready bool) {
	if ready {
		m.extractionReady.Set(1)
		return
	}
	m.extractionReady.Set(0)
}

// RecordRateLimitHit records a rate limit hit
func (m *Metrics) RecordRateLimitHit(limiterType string) {
	m.rateLimitHitsTotal.WithLabelValues(limiterType).Inc()
}

// UpdateUptime updates the system uptime metric
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.systemUptime.Set(time.Since(startTime).Seconds())
}

// Handler returns a Fiber handler that exposes Prometheus metrics
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// normalizePath keeps label cardinality bounded
func normalizePath(path string) string {
	if len(path) > 50 {
		return "long_path"
	}
	return path
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
