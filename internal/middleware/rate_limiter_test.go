package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(handler)
	app.Post("/recognize", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

func TestNewRateLimiter(t *testing.T) {
	var mu sync.Mutex
	var hits []string

	app := newLimitedApp(NewRateLimiter(RateLimiterConfig{
		Name:       "test",
		Max:        2,
		Expiration: time.Minute,
		OnLimit: func(name string) {
			mu.Lock()
			hits = append(hits, name)
			mu.Unlock()
		},
	}))

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/recognize", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/recognize", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Rate limit exceeded. Maximum 2 requests per 1m0s allowed.", body["detail"])
	assert.Equal(t, float64(429), body["code"])

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"test"}, hits)
}

func TestNewRateLimiter_CustomKeyAndMessage(t *testing.T) {
	app := newLimitedApp(NewRateLimiter(RateLimiterConfig{
		Max:        1,
		Expiration: time.Minute,
		KeyFunc: func(c *fiber.Ctx) string {
			return c.Get("X-Client")
		},
		Message: "slow down",
	}))

	send := func(client string) int {
		req := httptest.NewRequest("POST", "/recognize", nil)
		req.Header.Set("X-Client", client)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, send("a"))
	assert.Equal(t, fiber.StatusOK, send("b"))
	assert.Equal(t, fiber.StatusTooManyRequests, send("a"))
}

func TestRecognizeLimiter(t *testing.T) {
	var limited string
	app := newLimitedApp(RecognizeLimiter(1, time.Minute, func(name string) { limited = name }))

	resp, err := app.Test(httptest.NewRequest("POST", "/recognize", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/recognize", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "recognize", limited)
}
