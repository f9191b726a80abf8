//go:build cgo && ocr

package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
)

// GosseractProvider implements OCR through libtesseract bindings
type GosseractProvider struct {
	name string
}

// NewGosseractProvider creates a provider backed by the linked libtesseract
func NewGosseractProvider() *GosseractProvider {
	log.Debug().Str("tesseract_version", gosseract.Version()).Msg("Gosseract provider initialized")
	return &GosseractProvider{name: string(ProviderTypeGosseract)}
}

func (p *GosseractProvider) Name() string {
	return p.name
}

func (p *GosseractProvider) IsAvailable() bool {
	return true
}

func (p *GosseractProvider) Close() error {
	return nil
}

// Recognize runs word-level recognition. The OEM setting only applies to the
// tesseract binary; the bindings use the engine's default mode.
func (p *GosseractProvider) Recognize(ctx context.Context, pngData []byte, opts Options) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.DataPath != "" {
		if err := client.SetTessdataPrefix(opts.DataPath); err != nil {
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if len(opts.Languages) > 0 {
		if err := client.SetLanguage(opts.Languages...); err != nil {
			return nil, fmt.Errorf("failed to set language: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, Token{
			Text:       b.Word,
			Left:       strconv.Itoa(b.Box.Min.X),
			Top:        strconv.Itoa(b.Box.Min.Y),
			Width:      strconv.Itoa(b.Box.Dx()),
			Height:     strconv.Itoa(b.Box.Dy()),
			Confidence: strconv.FormatFloat(b.Confidence, 'f', -1, 64),
		})
	}
	return tokens, nil
}

// Languages lists the traineddata files in the tessdata directory
func (p *GosseractProvider) Languages(ctx context.Context, dataPath string) ([]string, error) {
	if dataPath == "" {
		dataPath = os.Getenv("TESSDATA_PREFIX")
	}
	if dataPath == "" {
		return nil, fmt.Errorf("tessdata directory is not configured")
	}

	matches, err := filepath.Glob(filepath.Join(dataPath, "*.traineddata"))
	if err != nil {
		return nil, err
	}

	langs := make([]string, 0, len(matches))
	for _, m := range matches {
		langs = append(langs, strings.TrimSuffix(filepath.Base(m), ".traineddata"))
	}
	sort.Strings(langs)
	return langs, nil
}
