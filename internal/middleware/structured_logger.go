package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const redacted = "[redacted]"

// sensitiveQueryParams never reach the access log verbatim
var sensitiveQueryParams = []string{"token", "access_token", "api_key", "apikey", "key", "secret", "password"}

// StructuredLoggerConfig holds configuration for the access log
type StructuredLoggerConfig struct {
	// SkipPaths are not logged at all
	SkipPaths []string
	// SkipSuccessfulRequests drops 2xx entries
	SkipSuccessfulRequests bool
	// Logger overrides the global logger
	Logger *zerolog.Logger
	// SlowRequestThreshold raises successful requests slower than this to
	// warn. Zero disables the check.
	SlowRequestThreshold time.Duration
}

// DefaultStructuredLoggerConfig skips the liveness and scrape routes. OCR of a
// large scan legitimately takes a while, so slow means over 30s.
func DefaultStructuredLoggerConfig() StructuredLoggerConfig {
	return StructuredLoggerConfig{
		SkipPaths:            []string{"/healthz", "/metrics"},
		SlowRequestThreshold: 30 * time.Second,
	}
}

func redactQueryString(queryString string) string {
	if queryString == "" {
		return ""
	}

	values, err := url.ParseQuery(queryString)
	if err != nil {
		return redacted
	}

	for key := range values {
		if isSensitiveParam(key) {
			values.Set(key, redacted)
		}
	}
	return values.Encode()
}

func isSensitiveParam(key string) bool {
	for _, param := range sensitiveQueryParams {
		if strings.EqualFold(key, param) {
			return true
		}
	}
	return false
}

// StructuredLogger writes one "HTTP request" entry per request. Errors
// returned by the chain are passed to the app's error handler here, so the
// logged status is the one sent to the client and outer middlewares see it
// too.
func StructuredLogger(config ...StructuredLoggerConfig) fiber.Handler {
	cfg := DefaultStructuredLoggerConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if _, ok := skip[path]; ok {
			return c.Next()
		}

		start := time.Now()
		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		duration := time.Since(start)
		status := c.Response().StatusCode()

		if cfg.SkipSuccessfulRequests && status >= 200 && status < 300 {
			return nil
		}

		logger := log.Logger
		if cfg.Logger != nil {
			logger = *cfg.Logger
		}

		event := levelFor(&logger, status, duration, cfg.SlowRequestThreshold).
			Str("request_id", requestID(c)).
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Int("status", status).
			Int64("duration_ms", duration.Milliseconds()).
			Int("request_bytes", c.Request().Header.ContentLength()).
			Int("response_bytes", len(c.Response().Body())).
			Str("user_agent", c.Get(fiber.HeaderUserAgent))

		if query := string(c.Request().URI().QueryString()); query != "" {
			event = event.Str("query", redactQueryString(query))
		}
		if chainErr != nil {
			event = event.Str("error", chainErr.Error())
		}

		event.Msg("HTTP request")
		return nil
	}
}

func levelFor(logger *zerolog.Logger, status int, duration, slow time.Duration) *zerolog.Event {
	switch {
	case status >= fiber.StatusInternalServerError:
		return logger.Error()
	case status >= fiber.StatusBadRequest:
		return logger.Warn()
	case slow > 0 && duration > slow:
		return logger.Warn().Bool("slow_request", true)
	default:
		return logger.Info()
	}
}

// requestID prefers the id stored by the requestid middleware and falls back
// to the client's header.
func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}
