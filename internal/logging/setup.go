// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anubis-ocr/gateway/internal/config"
)

// Setup points the global logger at a Writer built from cfg and sets the
// global level. debug forces the debug level. The returned Writer must be
// closed on shutdown.
func Setup(cfg config.LoggingConfig, debug bool) (*Writer, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	var file *os.File
	if cfg.File != "" {
		file, err = openLogFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
	}

	var w *Writer
	if file != nil {
		w = NewWriter(os.Stderr, cfg.Format, file)
	} else {
		w = NewWriter(os.Stderr, cfg.Format, nil)
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	return w, nil
}

// parseLogLevel converts a configured level name to a zerolog level
func parseLogLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return parsed, nil
}
