// Package gateway orchestrates one recognition request: validation, the
// extraction and OCR adapters, and the merge of their results.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/anubis-ocr/gateway/internal/extraction"
	"github.com/anubis-ocr/gateway/internal/observability"
	"github.com/anubis-ocr/gateway/internal/ocr"
	"github.com/anubis-ocr/gateway/internal/text"
	"github.com/anubis-ocr/gateway/internal/upload"
)

// Recognition outcomes reported to the Observer
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Engine names reported to the Observer
const (
	EngineExtraction = "extraction"
	EngineOCR        = "ocr"
)

// CombinedResult is the response for one recognized upload
type CombinedResult struct {
	PrimaryText  string      `json:"primaryText"`
	OCRText      string      `json:"ocrText"`
	CombinedText string      `json:"combinedText"`
	LanguageHint string      `json:"languageHint"`
	Blocks       []ocr.Block `json:"blocks"`
}

// Extractor is the text extraction adapter
type Extractor interface {
	Extract(ctx context.Context, doc extraction.Document) (string, error)
	Probe(ctx context.Context) error
	EngineName() string
}

// Recognizer is the OCR adapter
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, languageSpec string) (*ocr.Result, error)
	Languages(ctx context.Context) ([]string, error)
	DefaultLanguages() string
	IsEnabled() bool
}

// Observer receives request and engine measurements
type Observer interface {
	ObserveEngine(engine string, duration time.Duration, err error)
	ObserveRecognition(outcome string, uploadBytes int64, blocks int)
	SetExtractionReady(ready bool)
}

type noopObserver struct{}

func (noopObserver) ObserveEngine(string, time.Duration, error) {}
func (noopObserver) ObserveRecognition(string, int64, int)      {}
func (noopObserver) SetExtractionReady(bool)                    {}

// ReadinessError reports that the extraction engine failed its probe
type ReadinessError struct {
	Err error
}

func (e *ReadinessError) Error() string {
	return fmt.Sprintf("content extraction engine is not ready: %v", e.Err)
}

func (e *ReadinessError) Unwrap() error {
	return e.Err
}

// Service is the gateway
type Service struct {
	validator  *upload.Validator
	extractor  Extractor
	recognizer Recognizer
	observer   Observer
}

// NewService creates a gateway over the given adapters
func NewService(validator *upload.Validator, extractor Extractor, recognizer Recognizer) *Service {
	return &Service{
		validator:  validator,
		extractor:  extractor,
		recognizer: recognizer,
		observer:   noopObserver{},
	}
}

// SetObserver installs a metrics observer
func (s *Service) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	s.observer = o
}

// MaxUploadSize returns the validator limit in bytes
func (s *Service) MaxUploadSize() int64 {
	return s.validator.MaxSize()
}

// Recognize validates the upload, runs extraction and OCR concurrently and
// merges the two texts. Both engines always run to completion: neither an
// engine failure nor a cancelled ctx stops the other one.
func (s *Service) Recognize(ctx context.Context, name string, data []byte, languageSpec string) (*CombinedResult, error) {
	start := time.Now()

	payload, err := s.validator.Validate(name, data)
	if err != nil {
		s.observer.ObserveRecognition(OutcomeRejected, int64(len(data)), 0)
		return nil, err
	}

	ctx, span := observability.StartPipelineSpan(ctx, "recognize",
		attribute.String("upload.name", payload.Name),
		attribute.Int64("upload.size", payload.Size()),
	)
	defer span.End()

	engineCtx := context.WithoutCancel(ctx)

	var (
		primary   string
		ocrResult *ocr.Result
		g         errgroup.Group
	)

	g.Go(func() error {
		var err error
		primary, err = s.extract(engineCtx, payload)
		return err
	})

	g.Go(func() error {
		var err error
		ocrResult, err = s.recognize(engineCtx, payload, languageSpec)
		return err
	})

	if err := g.Wait(); err != nil {
		observability.RecordError(ctx, err)
		s.observer.ObserveRecognition(OutcomeError, payload.Size(), 0)
		return nil, err
	}

	_, mergeSpan := observability.StartPipelineSpan(ctx, "merge")
	combined := text.Merge(primary, ocrResult.Text)
	mergeSpan.End()

	result := &CombinedResult{
		PrimaryText:  primary,
		OCRText:      ocrResult.Text,
		CombinedText: combined,
		LanguageHint: ocrResult.Languages,
		Blocks:       ocrResult.Blocks,
	}
	if result.Blocks == nil {
		result.Blocks = []ocr.Block{}
	}

	s.observer.ObserveRecognition(OutcomeSuccess, payload.Size(), len(result.Blocks))

	log.Info().
		Str("file", payload.Name).
		Int("primary_chars", len([]rune(result.PrimaryText))).
		Int("ocr_chars", len([]rune(result.OCRText))).
		Int("blocks", len(result.Blocks)).
		Str("languages", result.LanguageHint).
		Dur("duration", time.Since(start)).
		Msg("OCR completed")

	return result, nil
}

func (s *Service) extract(ctx context.Context, payload *upload.Payload) (string, error) {
	ctx, span := observability.StartPipelineSpan(ctx, "extract",
		attribute.String("engine", s.extractor.EngineName()),
	)
	start := time.Now()

	content, err := s.extractor.Extract(ctx, extraction.Document{Name: payload.Name, Data: payload.Data})

	s.observer.ObserveEngine(EngineExtraction, time.Since(start), err)
	observability.EndSpan(span, err)
	return content, err
}

func (s *Service) recognize(ctx context.Context, payload *upload.Payload, languageSpec string) (*ocr.Result, error) {
	ctx, span := observability.StartPipelineSpan(ctx, "ocr")
	start := time.Now()

	result, err := s.recognizer.Recognize(ctx, payload.Data, languageSpec)
	if err == nil {
		span.SetAttributes(
			attribute.String("ocr.languages", result.Languages),
			attribute.Int("ocr.blocks", len(result.Blocks)),
		)
	}

	s.observer.ObserveEngine(EngineOCR, time.Since(start), err)
	observability.EndSpan(span, err)
	return result, err
}

// Health re-probes the extraction engine. A failed probe is returned as a
// *ReadinessError.
func (s *Service) Health(ctx context.Context) error {
	err := s.extractor.Probe(ctx)
	s.observer.SetExtractionReady(err == nil)
	if err != nil {
		return &ReadinessError{Err: err}
	}
	return nil
}

// OCREnabled reports whether the OCR engine is available
func (s *Service) OCREnabled() bool {
	return s.recognizer.IsEnabled()
}

// Warmup runs the readiness probe once at startup. A failure only logs; the
// gateway keeps serving and reports degraded health until the engine answers.
func (s *Service) Warmup(ctx context.Context) {
	if err := s.Health(ctx); err != nil {
		log.Warn().
			Err(err).
			Str("engine", s.extractor.EngineName()).
			Msg("Extraction engine not ready, serving in degraded mode")
		return
	}

	log.Info().
		Str("engine", s.extractor.EngineName()).
		Bool("ocr_enabled", s.recognizer.IsEnabled()).
		Msg("Extraction engine ready")
}

// LanguageInfo describes the OCR language configuration
type LanguageInfo struct {
	Default   string   `json:"default"`
	Available []string `json:"available"`
}

// Languages returns the default language spec and the installed packs.
// Available is empty when OCR is disabled.
func (s *Service) Languages(ctx context.Context) (*LanguageInfo, error) {
	info := &LanguageInfo{
		Default:   s.recognizer.DefaultLanguages(),
		Available: []string{},
	}
	if !s.recognizer.IsEnabled() {
		return info, nil
	}

	langs, err := s.recognizer.Languages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OCR languages: %w", err)
	}
	info.Available = langs
	return info, nil
}
