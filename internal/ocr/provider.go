package ocr

import (
	"context"
	"fmt"
)

// ProviderType represents the type of OCR provider
type ProviderType string

const (
	// ProviderTypeTesseract runs the tesseract binary
	ProviderTypeTesseract ProviderType = "tesseract"
	// ProviderTypeGosseract links libtesseract through cgo
	ProviderTypeGosseract ProviderType = "gosseract"
)

// Options are the per-call engine settings
type Options struct {
	Languages []string
	PSM       int
	OEM       int
	DataPath  string
}

// Provider defines the interface for OCR providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Recognize runs full-page recognition on a PNG image and returns the
	// per-word tokens in engine order.
	Recognize(ctx context.Context, pngData []byte, opts Options) ([]Token, error)

	// Languages lists the language packs installed for the engine
	Languages(ctx context.Context, dataPath string) ([]string, error)

	// IsAvailable checks if the engine is installed
	IsAvailable() bool

	// Close cleans up resources
	Close() error
}

// ProviderConfig represents OCR provider configuration
type ProviderConfig struct {
	Type       ProviderType
	BinaryPath string
}

// NewProvider creates an OCR provider based on configuration
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Type {
	case ProviderTypeTesseract, "":
		return NewTesseractProvider(cfg.BinaryPath), nil
	case ProviderTypeGosseract:
		return NewGosseractProvider(), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider: %s", cfg.Type)
	}
}

// EngineError wraps a recognition failure reported by the OCR engine.
type EngineError struct {
	Provider string
	Err      error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s recognition error: %v", e.Provider, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
