package api

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/anubis-ocr/gateway/internal/gateway"
	"github.com/anubis-ocr/gateway/internal/observability"
)

// RecognizeHandler handles document recognition uploads
type RecognizeHandler struct {
	gateway *gateway.Service
}

// NewRecognizeHandler creates a new recognize handler
func NewRecognizeHandler(gw *gateway.Service) *RecognizeHandler {
	return &RecognizeHandler{
		gateway: gw,
	}
}

// Recognize extracts and OCRs an uploaded document
// POST /recognize (multipart "file", optional "languages" query or form value)
func (h *RecognizeHandler) Recognize(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}

	data, err := readFormFile(file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("failed to read uploaded file: %v", err))
	}

	languages := c.Query("languages")
	if languages == "" {
		languages = c.FormValue("languages")
	}

	log.Debug().
		Str("file", file.Filename).
		Str("languages", languages).
		Str("content_type", file.Header.Get(fiber.HeaderContentType)).
		Msg("Recognition request received")

	observability.SetSpanAttributes(c.UserContext(),
		attribute.String("upload.content_type", file.Header.Get(fiber.HeaderContentType)),
		attribute.String("ocr.requested_languages", languages),
	)

	result, err := h.gateway.Recognize(c.UserContext(), file.Filename, data, languages)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// Languages reports the default language spec and installed OCR packs
// GET /languages
func (h *RecognizeHandler) Languages(c *fiber.Ctx) error {
	info, err := h.gateway.Languages(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func readFormFile(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	return io.ReadAll(src)
}
