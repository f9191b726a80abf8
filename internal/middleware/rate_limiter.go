package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/memory/v2"
)

// RateLimiterConfig holds configuration for rate limiting
type RateLimiterConfig struct {
	Name       string                  // Limiter label reported to OnLimit
	Max        int                     // Maximum number of requests
	Expiration time.Duration           // Time window for the rate limit
	KeyFunc    func(*fiber.Ctx) string // Function to generate the key for rate limiting
	Message    string                  // Custom error message
	OnLimit    func(name string)       // Called for every rejected request
}

// NewRateLimiter creates a new rate limiter middleware with custom configuration
func NewRateLimiter(config RateLimiterConfig) fiber.Handler {
	// In-memory storage; one gateway process owns its counters
	storage := memory.New(memory.Config{
		GCInterval: 10 * time.Minute,
	})

	if config.KeyFunc == nil {
		config.KeyFunc = func(c *fiber.Ctx) string {
			return config.Name + ":" + c.IP()
		}
	}

	if config.Message == "" {
		config.Message = fmt.Sprintf("Rate limit exceeded. Maximum %d requests per %s allowed.",
			config.Max, config.Expiration.String())
	}

	return limiter.New(limiter.Config{
		Max:          config.Max,
		Expiration:   config.Expiration,
		KeyGenerator: config.KeyFunc,
		LimitReached: func(c *fiber.Ctx) error {
			if config.OnLimit != nil {
				config.OnLimit(config.Name)
			}
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(config.Expiration.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail": config.Message,
				"code":   fiber.StatusTooManyRequests,
			})
		},
		Storage: storage,
	})
}

// RecognizeLimiter limits recognition uploads per client IP
func RecognizeLimiter(max int, expiration time.Duration, onLimit func(string)) fiber.Handler {
	return NewRateLimiter(RateLimiterConfig{
		Name:       "recognize",
		Max:        max,
		Expiration: expiration,
		OnLimit:    onLimit,
	})
}
