package upload

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator(t *testing.T) {
	t.Run("uses given limit", func(t *testing.T) {
		assert.Equal(t, int64(1024), NewValidator(1024).MaxSize())
	})

	t.Run("falls back to default for zero", func(t *testing.T) {
		assert.Equal(t, DefaultMaxSize, NewValidator(0).MaxSize())
	})

	t.Run("falls back to default for negative", func(t *testing.T) {
		assert.Equal(t, DefaultMaxSize, NewValidator(-5).MaxSize())
	})

	t.Run("default is 75 MiB", func(t *testing.T) {
		assert.Equal(t, int64(75*1024*1024), DefaultMaxSize)
	})
}

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(10)

	t.Run("rejects empty payload", func(t *testing.T) {
		p, err := v.Validate("empty.txt", nil)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrEmptyPayload)

		p, err = v.Validate("empty.txt", []byte{})
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrEmptyPayload)
	})

	t.Run("accepts payload at the limit", func(t *testing.T) {
		data := bytes.Repeat([]byte("a"), 10)
		p, err := v.Validate("ok.txt", data)
		require.NoError(t, err)
		assert.Equal(t, "ok.txt", p.Name)
		assert.Equal(t, int64(10), p.Size())
		assert.Equal(t, data, p.Data)
	})

	t.Run("rejects payload one byte over the limit", func(t *testing.T) {
		p, err := v.Validate("big.bin", bytes.Repeat([]byte("a"), 11))
		assert.Nil(t, p)

		var tooLarge *PayloadTooLargeError
		require.True(t, errors.As(err, &tooLarge))
		assert.Equal(t, "big.bin", tooLarge.Name)
		assert.Equal(t, int64(11), tooLarge.Size)
		assert.Equal(t, int64(10), tooLarge.Limit)
		assert.Greater(t, tooLarge.Size, tooLarge.Limit)
	})

	t.Run("missing filename uses placeholder", func(t *testing.T) {
		p, err := v.Validate("", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, UnnamedFile, p.Name)

		_, err = v.Validate("", bytes.Repeat([]byte("a"), 11))
		var tooLarge *PayloadTooLargeError
		require.True(t, errors.As(err, &tooLarge))
		assert.Equal(t, UnnamedFile, tooLarge.Name)
	})
}

func TestPayloadTooLargeError(t *testing.T) {
	err := &PayloadTooLargeError{Name: "scan.tiff", Size: 80 * 1024 * 1024, Limit: DefaultMaxSize}

	assert.InDelta(t, 80.0, err.SizeMB(), 0.001)
	assert.InDelta(t, 75.0, err.LimitMB(), 0.001)
	assert.Equal(t, "file scan.tiff is too large for OCR (80.0 MB > 75.0 MB limit)", err.Error())
}
