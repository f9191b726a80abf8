package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// SecurityHeadersConfig lists the response headers the gateway pins. Empty
// values are not sent.
type SecurityHeadersConfig struct {
	ContentSecurityPolicy   string
	XFrameOptions           string
	XContentTypeOptions     string
	StrictTransportSecurity string // https only
	ReferrerPolicy          string
}

// DefaultSecurityHeadersConfig returns the headers for a JSON-only API
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		ContentSecurityPolicy:   "default-src 'none'; frame-ancestors 'none'",
		XFrameOptions:           "DENY",
		XContentTypeOptions:     "nosniff",
		StrictTransportSecurity: "max-age=31536000; includeSubDomains",
		ReferrerPolicy:          "no-referrer",
	}
}

type headerValue struct {
	name, value string
}

// SecurityHeaders sets the configured headers on every response and blanks
// the Server header.
func SecurityHeaders(config ...SecurityHeadersConfig) fiber.Handler {
	cfg := DefaultSecurityHeadersConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	var always []headerValue
	for _, h := range []headerValue{
		{"Content-Security-Policy", cfg.ContentSecurityPolicy},
		{"X-Frame-Options", cfg.XFrameOptions},
		{"X-Content-Type-Options", cfg.XContentTypeOptions},
		{"Referrer-Policy", cfg.ReferrerPolicy},
	} {
		if h.value != "" {
			always = append(always, h)
		}
	}
	hsts := cfg.StrictTransportSecurity

	return func(c *fiber.Ctx) error {
		for _, h := range always {
			c.Set(h.name, h.value)
		}
		if hsts != "" && c.Protocol() == "https" {
			c.Set(fiber.HeaderStrictTransportSecurity, hsts)
		}
		c.Set(fiber.HeaderServer, "")

		return c.Next()
	}
}
