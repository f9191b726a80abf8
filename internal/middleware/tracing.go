package middleware

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ocr-gateway-http"

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	Enabled bool

	// SkipPaths are probe and scrape routes that would only add noise
	SkipPaths []string
}

// DefaultTracingConfig traces everything except health and metrics routes
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/healthz", "/metrics"},
	}
}

// TracingMiddleware opens a server span per request and installs it as the
// request's user context, so spans started from c.UserContext() nest under it.
// An incoming W3C traceparent header becomes the span's parent.
func TracingMiddleware(cfg TracingConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	tracer := otel.Tracer(tracerName)

	return func(c *fiber.Ctx) error {
		path := c.Path()
		if _, ok := skip[path]; ok {
			return c.Next()
		}

		parent := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := tracer.Start(parent, c.Method()+" "+path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(requestAttributes(c, path)...),
		)
		defer span.End()

		c.SetUserContext(ctx)
		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Set("X-Trace-ID", sc.TraceID().String())
		}

		err := c.Next()
		finishServerSpan(span, c, err)
		return err
	}
}

func requestAttributes(c *fiber.Ctx, path string) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPMethod(c.Method()),
		semconv.HTTPRoute(path),
		semconv.HTTPScheme(c.Protocol()),
		semconv.NetHostName(c.Hostname()),
		attribute.String("http.user_agent", c.Get(fiber.HeaderUserAgent)),
		attribute.String("http.request_id", c.Get(fiber.HeaderXRequestID)),
		attribute.String("net.peer.ip", c.IP()),
		attribute.Int("http.request_content_length", c.Request().Header.ContentLength()),
	}
}

// finishServerSpan records the outcome. When err is still set the error
// handler has not run, so a *fiber.Error carries the final status.
func finishServerSpan(span trace.Span, c *fiber.Ctx, err error) {
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	span.SetAttributes(
		semconv.HTTPStatusCode(status),
		attribute.Int("http.response_size", len(c.Response().Body())),
	)

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= fiber.StatusInternalServerError:
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
	default:
		span.SetStatus(codes.Ok, "")
	}
}

// GetTraceID returns the trace ID of the request span, if any
func GetTraceID(c *fiber.Ctx) string {
	sc := trace.SpanContextFromContext(c.UserContext())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
