package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anubis-ocr/gateway/internal/api"
	"github.com/anubis-ocr/gateway/internal/config"
	"github.com/anubis-ocr/gateway/internal/extraction"
	"github.com/anubis-ocr/gateway/internal/gateway"
	"github.com/anubis-ocr/gateway/internal/logging"
	"github.com/anubis-ocr/gateway/internal/ocr"
	"github.com/anubis-ocr/gateway/internal/upload"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// CLI flags
	showVersion = flag.Bool("version", false, "Show version information")
)

const shutdownTimeout = 30 * time.Second

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("OCR Gateway %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Build Date: %s\n", BuildDate)
		os.Exit(0)
	}

	// Bootstrap logger until the configured one is in place
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logWriter, err := logging.Setup(cfg.Logging, cfg.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logWriter.Close()

	log.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting OCR gateway")

	engine, err := extraction.NewEngine(extraction.Config{
		Engine: extraction.EngineType(cfg.Extraction.Engine),
		Tika: extraction.TikaConfig{
			Endpoint:       cfg.Extraction.Tika.Endpoint,
			JarPath:        cfg.Extraction.Tika.JarPath,
			Path:           cfg.Extraction.Tika.Path,
			LogPath:        cfg.Extraction.Tika.LogPath,
			JavaPath:       cfg.Extraction.Tika.JavaPath,
			AutoStart:      cfg.Extraction.Tika.AutoStart,
			StartupTimeout: cfg.Extraction.Tika.StartupTimeout,
			RequestTimeout: cfg.Extraction.Tika.RequestTimeout,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create extraction engine")
	}
	extractor := extraction.NewService(engine)
	defer func() {
		if err := extractor.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop extraction engine")
		}
	}()

	recognizer, err := ocr.NewService(ocr.ServiceConfig{
		Enabled:          cfg.OCR.Enabled,
		ProviderType:     ocr.ProviderType(cfg.OCR.Provider),
		BinaryPath:       cfg.OCR.BinaryPath,
		DefaultLanguages: cfg.OCR.Languages,
		DataPath:         cfg.OCR.DataPath,
		PSM:              cfg.OCR.PSM,
		OEM:              cfg.OCR.OEM,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create OCR service")
	}
	defer func() { _ = recognizer.Close() }()

	gw := gateway.NewService(upload.NewValidator(cfg.Upload.MaxSize), extractor, recognizer)
	server := api.NewServer(cfg, gw, Version)

	// Probe (and, if configured, launch) the extraction engine before serving
	warmupTimeout := cfg.Extraction.Tika.StartupTimeout + 5*time.Second
	warmupCtx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	gw.Warmup(warmupCtx)
	cancel()

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Starting HTTP server")
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
