package observability

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	testCases := []struct {
		status   int
		expected string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{413, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
		{100, "unknown"},
		{0, "unknown"},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, statusClass(tc.status))
		})
	}
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/recognize", normalizePath("/recognize"))
	assert.Equal(t, "long_path", normalizePath("/recognize/with/a/very/long/path/that/goes/past/fifty/chars"))
	assert.Equal(t, "", normalizePath(""))
}

func TestNewMetrics_Independent(t *testing.T) {
	// Each instance owns its registry, so two can coexist in one process
	m1 := NewMetrics()
	m2 := NewMetrics()

	m1.ObserveRecognition("success", 10, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.recognitionsTotal.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.recognitionsTotal.WithLabelValues("success")))
}

func TestMetrics_Observer(t *testing.T) {
	m := NewMetrics()

	t.Run("ObserveEngine", func(t *testing.T) {
		m.ObserveEngine("ocr", 200*time.Millisecond, nil)
		m.ObserveEngine("extraction", time.Second, errors.New("down"))

		assert.Equal(t, 1.0, testutil.ToFloat64(m.engineErrors.WithLabelValues("extraction")))
		assert.Equal(t, 0.0, testutil.ToFloat64(m.engineErrors.WithLabelValues("ocr")))
	})

	t.Run("ObserveRecognition", func(t *testing.T) {
		m.ObserveRecognition("success", 2048, 7)
		m.ObserveRecognition("rejected", 0, 0)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.recognitionsTotal.WithLabelValues("success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.recognitionsTotal.WithLabelValues("rejected")))
		assert.Equal(t, 7.0, testutil.ToFloat64(m.ocrBlocksTotal))
	})

	t.Run("SetExtractionReady", func(t *testing.T) {
		m.SetExtractionReady(true)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionReady))

		m.SetExtractionReady(false)
		assert.Equal(t, 0.0, testutil.ToFloat64(m.extractionReady))
	})

	t.Run("RecordRateLimitHit", func(t *testing.T) {
		m.RecordRateLimitHit("recognize")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitHitsTotal.WithLabelValues("recognize")))
	})

	t.Run("UpdateUptime", func(t *testing.T) {
		m.UpdateUptime(time.Now().Add(-time.Hour))
		assert.GreaterOrEqual(t, testutil.ToFloat64(m.systemUptime), 3600.0)
	})
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := NewMetrics()

	app := fiber.New()
	app.Use(m.MetricsMiddleware())
	app.Get("/metrics", m.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ocr_gateway_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}
