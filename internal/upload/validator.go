// Package upload validates uploaded documents before they reach the engines.
package upload

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// UnnamedFile is the placeholder used when the client sends no filename.
const UnnamedFile = "<unnamed>"

const bytesPerMB = 1024 * 1024

// DefaultMaxSize is the default upload limit (75 MiB).
const DefaultMaxSize int64 = 75 * bytesPerMB

// ErrEmptyPayload is returned for zero-length uploads.
var ErrEmptyPayload = errors.New("uploaded file is empty")

// PayloadTooLargeError is returned when an upload exceeds the configured limit.
type PayloadTooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("file %s is too large for OCR (%.1f MB > %.1f MB limit)", e.Name, e.SizeMB(), e.LimitMB())
}

// SizeMB returns the rejected file size in megabytes.
func (e *PayloadTooLargeError) SizeMB() float64 {
	return toMB(e.Size)
}

// LimitMB returns the configured limit in megabytes.
func (e *PayloadTooLargeError) LimitMB() float64 {
	return toMB(e.Limit)
}

// Payload is an accepted upload. It lives for a single request.
type Payload struct {
	Name string
	Data []byte
}

// Size returns the payload length in bytes.
func (p *Payload) Size() int64 {
	return int64(len(p.Data))
}

// Validator enforces the upload invariants: non-empty and within MaxSize.
type Validator struct {
	maxSize int64
}

// NewValidator creates a validator. A non-positive maxSize falls back to DefaultMaxSize.
func NewValidator(maxSize int64) *Validator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Validator{maxSize: maxSize}
}

// MaxSize returns the configured limit in bytes.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Validate checks an upload and returns the accepted payload.
func (v *Validator) Validate(name string, data []byte) (*Payload, error) {
	if name == "" {
		name = UnnamedFile
	}

	if len(data) == 0 {
		log.Warn().Str("file", name).Msg("Rejected empty upload")
		return nil, ErrEmptyPayload
	}

	size := int64(len(data))
	if size > v.maxSize {
		err := &PayloadTooLargeError{Name: name, Size: size, Limit: v.maxSize}
		log.Warn().
			Str("file", name).
			Str("size", fmt.Sprintf("%.1f MB", err.SizeMB())).
			Str("limit", fmt.Sprintf("%.1f MB", err.LimitMB())).
			Msg("Skipping OCR: file exceeds size limit")
		return nil, err
	}

	log.Info().
		Str("file", name).
		Str("size", fmt.Sprintf("%.1f MB", toMB(size))).
		Msg("Received file for OCR")

	return &Payload{Name: name, Data: data}, nil
}

func toMB(n int64) float64 {
	return float64(n) / bytesPerMB
}
