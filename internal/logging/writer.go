package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Writer fans zerolog output out to the console and an optional log file.
// The console gets pretty or JSON output depending on format; the file
// always receives the raw JSON lines.
type Writer struct {
	console io.Writer
	file    io.WriteCloser
}

// NewWriter creates a new zerolog writer. out is the console destination;
// file may be nil.
func NewWriter(out io.Writer, format string, file io.WriteCloser) *Writer {
	console := out
	if format == "console" {
		console = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return &Writer{
		console: console,
		file:    file,
	}
}

// Write implements io.Writer
func (w *Writer) Write(p []byte) (n int, err error) {
	// Ignore console write errors - they shouldn't prevent file logging
	_, _ = w.console.Write(p)

	if w.file != nil {
		if _, err := w.file.Write(p); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// Close closes the log file, if any
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
