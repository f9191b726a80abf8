// Package ocr turns uploaded images into word-level text blocks using a
// Tesseract engine.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/anubis-ocr/gateway/internal/observability"
)

// Result is the OCR outcome for one upload
type Result struct {
	Text      string  `json:"text"`
	Blocks    []Block `json:"blocks"`
	Languages string  `json:"languages"`
}

// ServiceConfig contains configuration for the OCR service
type ServiceConfig struct {
	Enabled          bool
	ProviderType     ProviderType
	BinaryPath       string
	DefaultLanguages string
	DataPath         string
	PSM              int
	OEM              int
}

// Service is the OCR adapter
type Service struct {
	provider         Provider
	defaultLanguages string
	dataPath         string
	psm              int
	oem              int
	enabled          bool
	available        bool
}

// ErrEngineUnavailable is wrapped in the EngineError returned when OCR is
// enabled but the engine could not be found at startup.
var ErrEngineUnavailable = errors.New("OCR engine is not available")

// NewService creates the OCR service. A disabled service returns empty
// results; an enabled one whose engine is missing fails every image.
func NewService(cfg ServiceConfig) (*Service, error) {
	svc := newService(cfg)

	if !cfg.Enabled {
		log.Info().Msg("OCR service disabled")
		return svc, nil
	}

	provider, err := NewProvider(ProviderConfig{Type: cfg.ProviderType, BinaryPath: cfg.BinaryPath})
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR provider: %w", err)
	}

	return svc.withProvider(provider), nil
}

// NewServiceWithProvider creates a service around an existing provider
func NewServiceWithProvider(provider Provider, cfg ServiceConfig) *Service {
	return newService(cfg).withProvider(provider)
}

func newService(cfg ServiceConfig) *Service {
	languages := NormalizeLanguages(cfg.DefaultLanguages)
	if languages == "" {
		languages = DefaultLanguages
	}

	return &Service{
		defaultLanguages: languages,
		dataPath:         cfg.DataPath,
		psm:              cfg.PSM,
		oem:              cfg.OEM,
	}
}

func (s *Service) withProvider(provider Provider) *Service {
	s.provider = provider
	s.enabled = true

	if !provider.IsAvailable() {
		log.Warn().Str("provider", provider.Name()).Msg("OCR provider not available, image recognition will fail")
		return s
	}
	s.available = true

	log.Info().
		Str("provider", provider.Name()).
		Str("languages", s.defaultLanguages).
		Int("psm", s.psm).
		Int("oem", s.oem).
		Msg("OCR service initialized")

	return s
}

// IsEnabled returns whether OCR is enabled and available
func (s *Service) IsEnabled() bool {
	return s.enabled && s.available
}

// ProviderName returns the active provider, or "" when disabled
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// DefaultLanguages returns the configured default languages
func (s *Service) DefaultLanguages() string {
	return s.defaultLanguages
}

// ResolveLanguages normalizes a request's language spec, falling back to the
// configured default when it names no languages.
func (s *Service) ResolveLanguages(spec string) string {
	if langs := NormalizeLanguages(spec); langs != "" {
		return langs
	}
	return s.defaultLanguages
}

// Recognize runs OCR on an uploaded payload. Payloads that are not decodable
// images produce an empty result, not an error. So does a disabled service.
func (s *Service) Recognize(ctx context.Context, data []byte, languageSpec string) (*Result, error) {
	result := &Result{
		Languages: s.ResolveLanguages(languageSpec),
		Blocks:    []Block{},
	}

	if !s.enabled {
		log.Debug().Msg("OCR disabled, skipping recognition")
		return result, nil
	}

	img, format, err := DecodeImage(data)
	if err != nil {
		log.Debug().Err(err).Msg("Payload is not a decodable image, skipping OCR")
		observability.AddSpanEvent(ctx, "ocr.skipped", attribute.String("reason", "not an image"))
		return result, nil
	}

	if !s.available {
		log.Error().Str("provider", s.provider.Name()).Msg("OCR engine unavailable")
		return nil, &EngineError{Provider: s.provider.Name(), Err: ErrEngineUnavailable}
	}

	pngData, err := encodePNG(img)
	if err != nil {
		return nil, &EngineError{Provider: s.provider.Name(), Err: err}
	}

	log.Info().
		Str("languages", result.Languages).
		Str("format", format).
		Msg("Using OCR languages")

	start := time.Now()
	tokens, err := s.provider.Recognize(ctx, pngData, Options{
		Languages: SplitLanguages(result.Languages),
		PSM:       s.psm,
		OEM:       s.oem,
		DataPath:  s.dataPath,
	})
	if err != nil {
		log.Error().Err(err).Str("provider", s.provider.Name()).Msg("OCR recognition failed")
		return nil, &EngineError{Provider: s.provider.Name(), Err: err}
	}

	result.Blocks, result.Text = BuildBlocks(tokens)

	log.Debug().
		Int("blocks", len(result.Blocks)).
		Int("text_length", len(result.Text)).
		Dur("duration", time.Since(start)).
		Msg("OCR recognition completed")

	return result, nil
}

// Languages lists the language packs the engine has installed
func (s *Service) Languages(ctx context.Context) ([]string, error) {
	if !s.enabled {
		return nil, fmt.Errorf("OCR service is not enabled")
	}
	if !s.available {
		return nil, &EngineError{Provider: s.provider.Name(), Err: ErrEngineUnavailable}
	}
	return s.provider.Languages(ctx, s.dataPath)
}

// Close cleans up the OCR service resources
func (s *Service) Close() error {
	if s.provider != nil {
		return s.provider.Close()
	}
	return nil
}
