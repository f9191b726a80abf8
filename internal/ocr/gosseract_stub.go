//go:build !cgo || !ocr

package ocr

import (
	"context"
	"errors"
)

var errNoBindings = errors.New("OCR not available: built without Tesseract bindings")

// GosseractProvider is a stub for builds without CGO or the ocr tag
type GosseractProvider struct {
	name string
}

// NewGosseractProvider creates a stub provider that reports unavailability
func NewGosseractProvider() *GosseractProvider {
	return &GosseractProvider{name: "gosseract (unavailable)"}
}

func (p *GosseractProvider) Name() string {
	return p.name
}

func (p *GosseractProvider) IsAvailable() bool {
	return false
}

func (p *GosseractProvider) Close() error {
	return nil
}

func (p *GosseractProvider) Recognize(ctx context.Context, pngData []byte, opts Options) ([]Token, error) {
	return nil, errNoBindings
}

func (p *GosseractProvider) Languages(ctx context.Context, dataPath string) ([]string, error) {
	return nil, errNoBindings
}
