package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/anubis-ocr/gateway/internal/config"
	"github.com/anubis-ocr/gateway/internal/gateway"
	"github.com/anubis-ocr/gateway/internal/middleware"
	"github.com/anubis-ocr/gateway/internal/observability"
)

// multipartOverhead is added to the upload limit for multipart framing, so a
// file just over the limit still reaches the validator and gets a detailed 413.
const multipartOverhead = 1024 * 1024

const healthTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	app              *fiber.App
	config           *config.Config
	gateway          *gateway.Service
	tracer           *observability.Tracer
	metrics          *observability.Metrics
	recognizeHandler *RecognizeHandler
	startTime        time.Time
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, gw *gateway.Service, version string) *Server {
	uploadLimit := int(gw.MaxUploadSize()) + multipartOverhead

	app := fiber.New(fiber.Config{
		AppName:               "OCR Gateway " + version,
		BodyLimit:             uploadLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		DisableStartupMessage: !cfg.Debug,
		ErrorHandler:          newErrorHandler(gw.MaxUploadSize()),
		Prefork:               false,
	})

	// Initialize OpenTelemetry tracer
	tracerCfg := cfg.Tracing
	tracerCfg.ServiceVersion = version
	tracer, err := observability.NewTracer(context.Background(), tracerCfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize OpenTelemetry tracer, tracing will be disabled")
	}

	metrics := observability.NewMetrics()
	gw.SetObserver(metrics)

	server := &Server{
		app:              app,
		config:           cfg,
		gateway:          gw,
		tracer:           tracer,
		metrics:          metrics,
		recognizeHandler: NewRecognizeHandler(gw),
		startTime:        time.Now(),
	}

	server.setupMiddlewares(uploadLimit)
	server.setupRoutes()

	return server
}

// setupMiddlewares sets up global middlewares. Order matters: the structured
// logger runs the error handler, so everything outside it sees final statuses.
func (s *Server) setupMiddlewares(uploadLimit int) {
	log.Debug().Msg("Adding requestid middleware")
	s.app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))

	s.app.Use(middleware.SecurityHeaders())

	log.Debug().Str("origins", s.config.Server.CORSOrigins).Msg("Adding CORS middleware")
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.Server.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))

	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelDefault,
	}))

	if s.config.Metrics.Enabled {
		s.app.Use(s.metrics.MetricsMiddleware())
	}

	if s.tracer != nil && s.tracer.IsEnabled() {
		log.Debug().Msg("Adding OpenTelemetry tracing middleware")
		s.app.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig()))
	}

	s.app.Use(middleware.StructuredLogger())

	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: s.config.Debug,
	}))

	s.app.Use(middleware.BodyLimit(middleware.BodyLimitConfig{
		Routes: map[string]int64{
			"/recognize": int64(uploadLimit),
			"/ocr":       int64(uploadLimit),
		},
	}))
}

// setupRoutes sets up all routes
func (s *Server) setupRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/healthz", s.handleHealth)

	recognize := []fiber.Handler{s.recognizeHandler.Recognize}
	if s.config.RateLimit.Enabled {
		log.Info().
			Int("max", s.config.RateLimit.Max).
			Dur("expiration", s.config.RateLimit.Expiration).
			Msg("Enabling recognition rate limiter")
		limiter := middleware.RecognizeLimiter(s.config.RateLimit.Max, s.config.RateLimit.Expiration, s.metrics.RecordRateLimitHit)
		recognize = append([]fiber.Handler{limiter}, recognize...)
	}
	s.app.Post("/recognize", recognize...)
	s.app.Post("/ocr", recognize...)

	s.app.Get("/languages", s.recognizeHandler.Languages)

	if s.config.Metrics.Enabled {
		metricsHandler := s.metrics.Handler()
		s.app.Get(s.config.Metrics.Path, func(c *fiber.Ctx) error {
			s.metrics.UpdateUptime(s.startTime)
			return metricsHandler(c)
		})
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	services := fiber.Map{
		"extraction": true,
		"ocr":        s.gateway.OCREnabled(),
	}

	err := s.gateway.Health(ctx)
	if err == nil {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"services":  services,
			"timestamp": time.Now().UTC(),
		})
	}

	var readiness *gateway.ReadinessError
	if !errors.As(err, &readiness) {
		return err
	}

	log.Warn().Err(err).Msg("Health check failed")
	services["extraction"] = false

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"status":    "degraded",
		"detail":    readiness.Error(),
		"code":      fiber.StatusServiceUnavailable,
		"services":  services,
		"timestamp": time.Now().UTC(),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.app.Listen(s.config.Server.Address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")
	err := s.app.ShutdownWithContext(ctx)

	// Shutdown OpenTelemetry tracer (flush remaining spans)
	if s.tracer != nil {
		if terr := s.tracer.Shutdown(ctx); terr != nil {
			log.Warn().Err(terr).Msg("Failed to shutdown OpenTelemetry tracer")
		}
	}

	return err
}

// App returns the underlying Fiber app instance for testing
func (s *Server) App() *fiber.App {
	return s.app
}

// Metrics returns the server's metrics
func (s *Server) Metrics() *observability.Metrics {
	return s.metrics
}
