package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	available bool
	tokens    []Token
	err       error
	calls     int
	lastOpts  Options
}

func (f *fakeProvider) Name() string      { return "fake" }
func (f *fakeProvider) IsAvailable() bool { return f.available }
func (f *fakeProvider) Close() error      { return nil }

func (f *fakeProvider) Recognize(ctx context.Context, pngData []byte, opts Options) ([]Token, error) {
	f.calls++
	f.lastOpts = opts
	return f.tokens, f.err
}

func (f *fakeProvider) Languages(ctx context.Context, dataPath string) ([]string, error) {
	return []string{"eng", "kat"}, nil
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeLanguages(t *testing.T) {
	tests := []struct {
		spec     string
		expected string
	}{
		{spec: "kat, eng ; rus", expected: "kat+eng+rus"},
		{spec: "kat,,eng", expected: "kat+eng"},
		{spec: "kat+eng+rus", expected: "kat+eng+rus"},
		{spec: "  eng  ", expected: "eng"},
		{spec: "eng++deu", expected: "eng+deu"},
		{spec: "", expected: ""},
		{spec: " ,;+ ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeLanguages(tt.spec))
		})
	}
}

func TestSplitLanguages(t *testing.T) {
	assert.Equal(t, []string{"kat", "eng", "rus"}, SplitLanguages("kat;eng rus"))
	assert.Empty(t, SplitLanguages(""))
}

func TestBuildBlocks(t *testing.T) {
	t.Run("skips blank tokens and keeps order", func(t *testing.T) {
		blocks, text := BuildBlocks([]Token{
			{Text: "", Left: "0", Top: "0", Width: "100", Height: "100", Confidence: "-1"},
			{Text: "Hello", Left: "10", Top: "20", Width: "30", Height: "12", Confidence: "96.5"},
			{Text: "   ", Left: "1", Top: "1", Width: "1", Height: "1", Confidence: "95"},
			{Text: "World", Left: "45", Top: "20", Width: "33", Height: "12", Confidence: "91"},
		})

		require.Len(t, blocks, 2)
		assert.Equal(t, "Hello World", text)
		assert.Equal(t, Block{Text: "Hello", Left: 10, Top: 20, Width: 30, Height: 12, Confidence: 96.5}, blocks[0])
		assert.Equal(t, "World", blocks[1].Text)
	})

	t.Run("unparsable confidence defaults to zero", func(t *testing.T) {
		blocks, _ := BuildBlocks([]Token{{Text: "x", Left: "1", Top: "1", Width: "1", Height: "1", Confidence: "n/a"}})
		require.Len(t, blocks, 1)
		assert.Equal(t, 0.0, blocks[0].Confidence)
	})

	t.Run("geometry truncates floats", func(t *testing.T) {
		blocks, _ := BuildBlocks([]Token{{Text: "x", Left: "12.9", Top: "3.1", Width: "7.99", Height: "", Confidence: "50"}})
		require.Len(t, blocks, 1)
		assert.Equal(t, 12, blocks[0].Left)
		assert.Equal(t, 3, blocks[0].Top)
		assert.Equal(t, 7, blocks[0].Width)
		assert.Equal(t, 0, blocks[0].Height)
	})

	t.Run("token text is trimmed", func(t *testing.T) {
		blocks, text := BuildBlocks([]Token{{Text: " padded\t", Confidence: "80"}})
		require.Len(t, blocks, 1)
		assert.Equal(t, "padded", blocks[0].Text)
		assert.Equal(t, "padded", text)
	})

	t.Run("no tokens", func(t *testing.T) {
		blocks, text := BuildBlocks(nil)
		assert.NotNil(t, blocks)
		assert.Empty(t, blocks)
		assert.Empty(t, text)
	})
}

func TestParseTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t36\t92\t120\t30\t95.83\tInvoice\n" +
		"5\t1\t1\t1\t1\t2\t170\t92\t60\t30\t88.1\t#42\n"

	tokens, err := ParseTSV([]byte(tsv))
	require.NoError(t, err)
	require.Len(t, tokens, 3)

	assert.Equal(t, "", tokens[0].Text)
	assert.Equal(t, Token{Text: "Invoice", Left: "36", Top: "92", Width: "120", Height: "30", Confidence: "95.83"}, tokens[1])

	blocks, text := BuildBlocks(tokens)
	assert.Len(t, blocks, 2)
	assert.Equal(t, "Invoice #42", text)
}

func TestParseTSV_Errors(t *testing.T) {
	tokens, err := ParseTSV(nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	_, err = ParseTSV([]byte("level\tleft\ttop\n1\t2\t3\n"))
	assert.Error(t, err)
}

func TestTesseractArgs(t *testing.T) {
	args := tesseractArgs(Options{Languages: []string{"kat", "eng"}, PSM: 3, OEM: 1, DataPath: "/tessdata"})
	assert.Equal(t, []string{
		"stdin", "stdout",
		"--tessdata-dir", "/tessdata",
		"-l", "kat+eng",
		"--psm", "3",
		"--oem", "1",
		"tsv",
	}, args)
}

func TestDecodeImage(t *testing.T) {
	img, format, err := DecodeImage(testPNG(t))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, _, err = DecodeImage([]byte("%PDF-1.7 not an image"))
	assert.Error(t, err)
}

func TestService_Recognize(t *testing.T) {
	cfg := ServiceConfig{DefaultLanguages: "kat+eng+rus", PSM: 3, OEM: 3, DataPath: "/tessdata"}

	t.Run("undecodable payload yields empty result", func(t *testing.T) {
		provider := &fakeProvider{available: true}
		svc := NewServiceWithProvider(provider, cfg)

		result, err := svc.Recognize(context.Background(), []byte("plain text, not an image"), "")
		require.NoError(t, err)
		assert.Equal(t, "", result.Text)
		assert.NotNil(t, result.Blocks)
		assert.Empty(t, result.Blocks)
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("image is recognized with resolved languages", func(t *testing.T) {
		provider := &fakeProvider{
			available: true,
			tokens: []Token{
				{Text: "Hello", Left: "1", Top: "2", Width: "3", Height: "4", Confidence: "90"},
				{Text: "", Confidence: "-1"},
				{Text: "there", Left: "5", Top: "2", Width: "3", Height: "4", Confidence: "bad"},
			},
		}
		svc := NewServiceWithProvider(provider, cfg)

		result, err := svc.Recognize(context.Background(), testPNG(t), "eng, deu")
		require.NoError(t, err)
		assert.Equal(t, "Hello there", result.Text)
		assert.Equal(t, "eng+deu", result.Languages)
		require.Len(t, result.Blocks, 2)
		assert.Equal(t, 0.0, result.Blocks[1].Confidence)

		assert.Equal(t, 1, provider.calls)
		assert.Equal(t, []string{"eng", "deu"}, provider.lastOpts.Languages)
		assert.Equal(t, 3, provider.lastOpts.PSM)
		assert.Equal(t, "/tessdata", provider.lastOpts.DataPath)
	})

	t.Run("blank language spec uses defaults", func(t *testing.T) {
		provider := &fakeProvider{available: true}
		svc := NewServiceWithProvider(provider, cfg)

		result, err := svc.Recognize(context.Background(), testPNG(t), " ,; ")
		require.NoError(t, err)
		assert.Equal(t, "kat+eng+rus", result.Languages)
		assert.Equal(t, []string{"kat", "eng", "rus"}, provider.lastOpts.Languages)
	})

	t.Run("engine failure is an engine error", func(t *testing.T) {
		cause := errors.New("tesseract crashed")
		svc := NewServiceWithProvider(&fakeProvider{available: true, err: cause}, cfg)

		result, err := svc.Recognize(context.Background(), testPNG(t), "")
		assert.Nil(t, result)

		var engineErr *EngineError
		require.True(t, errors.As(err, &engineErr))
		assert.Equal(t, "fake", engineErr.Provider)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("unavailable engine fails images", func(t *testing.T) {
		provider := &fakeProvider{available: false}
		svc := NewServiceWithProvider(provider, cfg)
		assert.False(t, svc.IsEnabled())
		assert.Equal(t, "fake", svc.ProviderName())

		result, err := svc.Recognize(context.Background(), testPNG(t), "")
		assert.Nil(t, result)

		var engineErr *EngineError
		require.True(t, errors.As(err, &engineErr))
		assert.Equal(t, "fake", engineErr.Provider)
		assert.ErrorIs(t, err, ErrEngineUnavailable)
		assert.Equal(t, 0, provider.calls)

		_, err = svc.Languages(context.Background())
		assert.ErrorIs(t, err, ErrEngineUnavailable)
	})

	t.Run("unavailable engine still skips non-images", func(t *testing.T) {
		provider := &fakeProvider{available: false}
		svc := NewServiceWithProvider(provider, cfg)

		result, err := svc.Recognize(context.Background(), []byte("%PDF-1.7"), "")
		require.NoError(t, err)
		assert.Empty(t, result.Text)
		assert.Equal(t, 0, provider.calls)
	})

	t.Run("disabled service skips images", func(t *testing.T) {
		svc, err := NewService(ServiceConfig{Enabled: false})
		require.NoError(t, err)

		result, err := svc.Recognize(context.Background(), testPNG(t), "")
		require.NoError(t, err)
		assert.Empty(t, result.Text)
		assert.Equal(t, DefaultLanguages, result.Languages)
	})
}

func TestNewService(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		svc, err := NewService(ServiceConfig{Enabled: false})
		require.NoError(t, err)
		assert.False(t, svc.IsEnabled())
		assert.Equal(t, DefaultLanguages, svc.DefaultLanguages())
		assert.Equal(t, "", svc.ProviderName())

		_, err = svc.Languages(context.Background())
		assert.Error(t, err)
	})

	t.Run("default languages are normalized", func(t *testing.T) {
		svc, err := NewService(ServiceConfig{Enabled: false, DefaultLanguages: "eng; deu"})
		require.NoError(t, err)
		assert.Equal(t, "eng+deu", svc.DefaultLanguages())
		assert.Equal(t, "eng+deu", svc.ResolveLanguages(""))
		assert.Equal(t, "rus", svc.ResolveLanguages("rus"))
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewService(ServiceConfig{Enabled: true, ProviderType: "bogus"})
		assert.Error(t, err)
	})

	t.Run("languages from provider", func(t *testing.T) {
		svc := NewServiceWithProvider(&fakeProvider{available: true}, ServiceConfig{})
		langs, err := svc.Languages(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"eng", "kat"}, langs)
	})
}
