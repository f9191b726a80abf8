// Package extraction adapts content-parsing engines (Apache Tika or the
// embedded Go parsers) to the gateway's text extraction contract.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/anubis-ocr/gateway/internal/text"
)

// EngineType names a content-parsing backend
type EngineType string

const (
	EngineTypeTika   EngineType = "tika"
	EngineTypeNative EngineType = "native"
)

// probeInput is the fixed document parsed by the readiness probe.
var probeInput = []byte("Anubis OCR health-check")

// Document is one uploaded file handed to an engine.
type Document struct {
	Name string
	Data []byte
}

// Engine is a content-parsing backend.
type Engine interface {
	// Name returns the engine name
	Name() string

	// Parse returns the raw text the engine found in the document.
	// No text is not an error.
	Parse(ctx context.Context, doc Document) (string, error)

	// Close releases engine resources
	Close() error
}

// starter is implemented by engines that must be brought up before use.
type starter interface {
	EnsureRunning(ctx context.Context) error
}

// EngineError wraps any failure reported by the content-parsing engine.
type EngineError struct {
	Engine string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s parse error: %v", e.Engine, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Config selects and configures the extraction engine
type Config struct {
	Engine EngineType
	Tika   TikaConfig
}

// NewEngine creates the engine named by cfg.Engine
func NewEngine(cfg Config) (Engine, error) {
	switch cfg.Engine {
	case EngineTypeNative:
		return NewNativeEngine(), nil
	case EngineTypeTika, "":
		return NewTikaEngine(cfg.Tika)
	default:
		return nil, fmt.Errorf("unknown extraction engine: %s", cfg.Engine)
	}
}

// Service is the text extraction adapter.
type Service struct {
	engine Engine
}

// NewService wraps an engine
func NewService(engine Engine) *Service {
	return &Service{engine: engine}
}

// EngineName returns the name of the underlying engine
func (s *Service) EngineName() string {
	return s.engine.Name()
}

// Extract parses the document and returns normalized text.
// Engine failures are returned as *EngineError and are not retried.
func (s *Service) Extract(ctx context.Context, doc Document) (string, error) {
	start := time.Now()

	raw, err := s.engine.Parse(ctx, doc)
	if err != nil {
		log.Error().
			Err(err).
			Str("engine", s.engine.Name()).
			Str("file", doc.Name).
			Msg("Content extraction failed")
		return "", &EngineError{Engine: s.engine.Name(), Err: err}
	}

	content := text.Normalize(raw)

	log.Debug().
		Str("engine", s.engine.Name()).
		Str("file", doc.Name).
		Int("text_length", len(content)).
		Dur("duration", time.Since(start)).
		Msg("Content extraction completed")

	return content, nil
}

// Probe verifies the engine can parse a trivial document. It starts the
// engine first when the engine supports it. Probe never panics; callers
// treat a non-nil error as "not ready".
func (s *Service) Probe(ctx context.Context) error {
	if st, ok := s.engine.(starter); ok {
		if err := st.EnsureRunning(ctx); err != nil {
			return &EngineError{Engine: s.engine.Name(), Err: err}
		}
	}

	if _, err := s.engine.Parse(ctx, Document{Name: "health-check.txt", Data: probeInput}); err != nil {
		return &EngineError{Engine: s.engine.Name(), Err: err}
	}
	return nil
}

// Close closes the underlying engine
func (s *Service) Close() error {
	return s.engine.Close()
}
