// Package testutil provides shared test utilities and mocks for unit testing.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"time"

	"github.com/anubis-ocr/gateway/internal/extraction"
	"github.com/anubis-ocr/gateway/internal/ocr"
)

// ErrMockEngineDown is a ready-made engine failure
var ErrMockEngineDown = errors.New("engine unavailable")

// MockExtractionEngine implements extraction.Engine for testing
type MockExtractionEngine struct {
	mu    sync.Mutex
	calls []extraction.Document

	// Text is returned by Parse when OnParse is nil
	Text string

	// Callbacks for custom behavior
	OnParse func(ctx context.Context, doc extraction.Document) (string, error)
}

// NewMockExtractionEngine creates an engine that returns text for every document
func NewMockExtractionEngine(text string) *MockExtractionEngine {
	return &MockExtractionEngine{Text: text}
}

func (m *MockExtractionEngine) Name() string {
	return "mock"
}

func (m *MockExtractionEngine) Parse(ctx context.Context, doc extraction.Document) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, doc)
	m.mu.Unlock()

	if m.OnParse != nil {
		return m.OnParse(ctx, doc)
	}
	return m.Text, nil
}

func (m *MockExtractionEngine) Close() error {
	return nil
}

// Calls returns the documents parsed so far
func (m *MockExtractionEngine) Calls() []extraction.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]extraction.Document(nil), m.calls...)
}

// MockOCRProvider implements ocr.Provider for testing
type MockOCRProvider struct {
	mu       sync.Mutex
	calls    int
	lastOpts ocr.Options

	Tokens    []ocr.Token
	Available bool
	Installed []string

	// Callbacks for custom behavior
	OnRecognize func(ctx context.Context, pngData []byte, opts ocr.Options) ([]ocr.Token, error)
}

// NewMockOCRProvider creates an available provider returning tokens
func NewMockOCRProvider(tokens ...ocr.Token) *MockOCRProvider {
	return &MockOCRProvider{
		Tokens:    tokens,
		Available: true,
		Installed: []string{"eng", "kat", "rus"},
	}
}

func (m *MockOCRProvider) Name() string {
	return "mock"
}

func (m *MockOCRProvider) IsAvailable() bool {
	return m.Available
}

func (m *MockOCRProvider) Close() error {
	return nil
}

func (m *MockOCRProvider) Recognize(ctx context.Context, pngData []byte, opts ocr.Options) ([]ocr.Token, error) {
	m.mu.Lock()
	m.calls++
	m.lastOpts = opts
	m.mu.Unlock()

	if m.OnRecognize != nil {
		return m.OnRecognize(ctx, pngData, opts)
	}
	return m.Tokens, nil
}

func (m *MockOCRProvider) Languages(ctx context.Context, dataPath string) ([]string, error) {
	return m.Installed, nil
}

// Calls returns how many times Recognize ran
func (m *MockOCRProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastOptions returns the options of the most recent Recognize call
func (m *MockOCRProvider) LastOptions() ocr.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOpts
}

// EngineObservation is one ObserveEngine call
type EngineObservation struct {
	Engine   string
	Duration time.Duration
	Err      error
}

// RecognitionObservation is one ObserveRecognition call
type RecognitionObservation struct {
	Outcome     string
	UploadBytes int64
	Blocks      int
}

// MockObserver records gateway measurements
type MockObserver struct {
	mu           sync.Mutex
	engines      []EngineObservation
	recognitions []RecognitionObservation
	ready        *bool
}

func (m *MockObserver) ObserveEngine(engine string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines = append(m.engines, EngineObservation{Engine: engine, Duration: duration, Err: err})
}

func (m *MockObserver) ObserveRecognition(outcome string, uploadBytes int64, blocks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recognitions = append(m.recognitions, RecognitionObservation{Outcome: outcome, UploadBytes: uploadBytes, Blocks: blocks})
}

func (m *MockObserver) SetExtractionReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = &ready
}

// Engines returns recorded engine observations
func (m *MockObserver) Engines() []EngineObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EngineObservation(nil), m.engines...)
}

// Recognitions returns recorded recognition observations
func (m *MockObserver) Recognitions() []RecognitionObservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecognitionObservation(nil), m.recognitions...)
}

// Ready returns the last readiness value, or nil if never set
func (m *MockObserver) Ready() *bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// SamplePNG returns a small encoded PNG image
func SamplePNG() []byte {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
