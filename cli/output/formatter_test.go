package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(format Format) (*Formatter, *bytes.Buffer) {
	var buf bytes.Buffer
	f := NewFormatter(format, false, false)
	f.Writer = &buf
	f.ErrWriter = &buf
	return f, &buf
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "JSON", want: FormatJSON},
		{input: "yml", want: FormatYAML},
		{input: "yaml", want: FormatYAML},
		{input: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat_DefaultWhenPiped(t *testing.T) {
	// go test never attaches stdout to a terminal
	got, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)
}

func TestFormatter_Print(t *testing.T) {
	data := map[string]string{"languageHint": "eng"}

	f, buf := newTestFormatter(FormatJSON)
	require.NoError(t, f.Print(data))
	assert.JSONEq(t, `{"languageHint":"eng"}`, buf.String())

	f, buf = newTestFormatter(FormatYAML)
	require.NoError(t, f.Print(data))
	assert.Equal(t, "languageHint: eng\n", buf.String())
}

func TestFormatter_PrintTable(t *testing.T) {
	data := TableData{
		Headers: []string{"SERVICE", "AVAILABLE"},
		Rows:    [][]string{{"extraction", "true"}, {"ocr", "false"}},
	}

	t.Run("table", func(t *testing.T) {
		f, buf := newTestFormatter(FormatTable)
		f.PrintTable(data)
		assert.Contains(t, buf.String(), "SERVICE")
		assert.Contains(t, buf.String(), "extraction")
	})

	t.Run("no headers", func(t *testing.T) {
		f, buf := newTestFormatter(FormatTable)
		f.NoHeaders = true
		f.PrintTable(data)
		assert.NotContains(t, buf.String(), "SERVICE")
		assert.Contains(t, buf.String(), "ocr")
	})

	t.Run("json rows", func(t *testing.T) {
		f, buf := newTestFormatter(FormatJSON)
		f.PrintTable(data)
		assert.JSONEq(t, `[{"SERVICE":"extraction","AVAILABLE":"true"},{"SERVICE":"ocr","AVAILABLE":"false"}]`, buf.String())
	})
}

func TestFormatter_Quiet(t *testing.T) {
	f, buf := newTestFormatter(FormatTable)
	f.Quiet = true

	require.NoError(t, f.Print("x"))
	f.PrintText("x")
	f.PrintKeyValue("k", "v")
	f.PrintList([]string{"a"})
	f.PrintWarning("w")

	assert.Empty(t, buf.String())
}

func TestFormatter_TextHelpers(t *testing.T) {
	f, buf := newTestFormatter(FormatTable)
	f.PrintKeyValue("Default", "kat+eng+rus")
	f.PrintList([]string{"eng", "rus"})
	f.PrintText("line\n\n")

	assert.Equal(t, "Default: kat+eng+rus\neng\nrus\nline\n", buf.String())
}
