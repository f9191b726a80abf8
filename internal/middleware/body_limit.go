package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// DefaultBodyLimit applies to every route without its own limit (64KB)
const DefaultBodyLimit int64 = 64 * 1024

// BodyLimitConfig holds per-route body size limits
type BodyLimitConfig struct {
	// DefaultLimit applies when no route matches (defaults to DefaultBodyLimit)
	DefaultLimit int64

	// Routes maps exact paths to their limit in bytes
	Routes map[string]int64
}

// Limit returns the body limit for path
func (cfg BodyLimitConfig) Limit(path string) int64 {
	if limit, ok := cfg.Routes[path]; ok {
		return limit
	}
	if cfg.DefaultLimit > 0 {
		return cfg.DefaultLimit
	}
	return DefaultBodyLimit
}

// BodyLimit rejects requests whose declared Content-Length exceeds the
// route's limit before any handler reads the body.
func BodyLimit(cfg BodyLimitConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := c.Method()
		if method == fiber.MethodGet || method == fiber.MethodHead || method == fiber.MethodOptions {
			return c.Next()
		}

		path := c.Path()
		limit := cfg.Limit(path)

		contentLength := c.Request().Header.ContentLength()
		if contentLength > 0 && int64(contentLength) > limit {
			log.Debug().
				Str("path", path).
				Int("content_length", contentLength).
				Int64("limit", limit).
				Msg("Request body exceeds limit (Content-Length)")

			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"detail": fmt.Sprintf("Request body exceeds maximum size of %s", formatBytes(limit)),
				"code":   fiber.StatusRequestEntityTooLarge,
			})
		}

		return c.Next()
	}
}

// formatBytes formats bytes into human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
