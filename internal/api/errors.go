package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/anubis-ocr/gateway/internal/extraction"
	"github.com/anubis-ocr/gateway/internal/gateway"
	"github.com/anubis-ocr/gateway/internal/ocr"
	"github.com/anubis-ocr/gateway/internal/upload"
)

// errorStatus maps an error to its HTTP status and client-facing detail
func errorStatus(err error) (int, string) {
	var (
		fiberErr   *fiber.Error
		tooLarge   *upload.PayloadTooLargeError
		extractErr *extraction.EngineError
		ocrErr     *ocr.EngineError
		readiness  *gateway.ReadinessError
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.As(err, &readiness):
		return fiber.StatusServiceUnavailable, readiness.Error()
	case errors.Is(err, upload.ErrEmptyPayload):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &tooLarge):
		return fiber.StatusRequestEntityTooLarge, tooLarge.Error()
	case errors.As(err, &extractErr):
		return fiber.StatusInternalServerError, extractErr.Error()
	case errors.As(err, &ocrErr):
		return fiber.StatusInternalServerError, ocrErr.Error()
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

// newErrorHandler renders every error as {"detail", "code"}. Bodies rejected
// by the server's own size cap report the configured upload limit.
func newErrorHandler(maxUpload int64) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, detail := errorStatus(err)
		if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
			detail = fmt.Sprintf("Request body exceeds maximum size of %.1f MB", float64(maxUpload)/(1024*1024))
		}

		if code >= 500 {
			log.Error().Err(err).Str("path", c.Path()).Int("status", code).Msg("Server error")
		}

		return c.Status(code).JSON(fiber.Map{
			"detail": detail,
			"code":   code,
		})
	}
}
