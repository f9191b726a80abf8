package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/anubis-ocr/gateway/internal/observability"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig               `mapstructure:"server"`
	Upload     UploadConfig               `mapstructure:"upload"`
	Extraction ExtractionConfig           `mapstructure:"extraction"`
	OCR        OCRConfig                  `mapstructure:"ocr"`
	Logging    LoggingConfig              `mapstructure:"logging"`
	Metrics    MetricsConfig              `mapstructure:"metrics"`
	Tracing    observability.TracerConfig `mapstructure:"tracing"`
	RateLimit  RateLimitConfig            `mapstructure:"rate_limit"`
	Debug      bool                       `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  string        `mapstructure:"cors_origins"`
}

// UploadConfig contains upload acceptance settings
type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"` // bytes
}

// ExtractionConfig selects and configures the content extraction engine
type ExtractionConfig struct {
	Engine string     `mapstructure:"engine"` // tika or native
	Tika   TikaConfig `mapstructure:"tika"`
}

// TikaConfig contains the Tika server settings
type TikaConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	JarPath        string        `mapstructure:"jar_path"`
	Path           string        `mapstructure:"path"`     // working directory for the spawned server
	LogPath        string        `mapstructure:"log_path"` // spawned server output
	JavaPath       string        `mapstructure:"java_path"`
	AutoStart      bool          `mapstructure:"auto_start"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // zero means no limit
}

// OCRConfig contains the OCR engine settings
type OCRConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Provider   string `mapstructure:"provider"` // tesseract or gosseract
	BinaryPath string `mapstructure:"binary_path"`
	Languages  string `mapstructure:"languages"`
	DataPath   string `mapstructure:"datapath"`
	PSM        int    `mapstructure:"psm"`
	OEM        int    `mapstructure:"oem"`
}

// LoggingConfig contains log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
	File   string `mapstructure:"file"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig limits recognition requests per client IP
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Max        int           `mapstructure:"max"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// legacyEnv maps config keys to the variable names of the original deployment
var legacyEnv = map[string]string{
	"upload.max_size":          "TIKA_MAX_FILE_SIZE",
	"ocr.languages":            "OCR_LANGUAGES",
	"extraction.tika.jar_path": "TIKA_SERVER_JAR",
	"extraction.tika.path":     "TIKA_PATH",
	"extraction.tika.endpoint": "TIKA_SERVER_ENDPOINT",
	"extraction.tika.log_path": "TIKA_LOG_PATH",
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	v.SetConfigName("ocr-gateway")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ocr-gateway")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Read config file (if it exists)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func loadEnvFile() error {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
			log.Debug().Str("file", path).Msg("Loaded environment file")
		}
	}
	return nil
}

// bindLegacyEnv binds each key to its GATEWAY_ variable first and the
// legacy variable second, so the prefixed name wins when both are set.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := "GATEWAY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":4101")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.cors_origins", "*")

	// Upload defaults
	v.SetDefault("upload.max_size", 75*1024*1024) // 75MB

	// Extraction defaults
	v.SetDefault("extraction.engine", "tika")
	v.SetDefault("extraction.tika.endpoint", "http://127.0.0.1:9998")
	v.SetDefault("extraction.tika.jar_path", "")
	v.SetDefault("extraction.tika.path", "")
	v.SetDefault("extraction.tika.log_path", "")
	v.SetDefault("extraction.tika.java_path", "java")
	v.SetDefault("extraction.tika.auto_start", false)
	v.SetDefault("extraction.tika.startup_timeout", "60s")
	v.SetDefault("extraction.tika.request_timeout", 0)

	// OCR defaults
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.binary_path", "")
	v.SetDefault("ocr.languages", "kat+eng+rus")
	v.SetDefault("ocr.datapath", "")
	v.SetDefault("ocr.psm", 3)
	v.SetDefault("ocr.oem", 3)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Tracing defaults
	tracing := observability.DefaultTracerConfig()
	v.SetDefault("tracing.enabled", tracing.Enabled)
	v.SetDefault("tracing.endpoint", tracing.Endpoint)
	v.SetDefault("tracing.service_name", tracing.ServiceName)
	v.SetDefault("tracing.environment", tracing.Environment)
	v.SetDefault("tracing.sample_rate", tracing.SampleRate)
	v.SetDefault("tracing.insecure", tracing.Insecure)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.max", 30)
	v.SetDefault("rate_limit.expiration", "1m")

	v.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server configuration error: %w", err)
	}
	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload configuration error: %w", err)
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction configuration error: %w", err)
	}
	if err := c.OCR.Validate(); err != nil {
		return fmt.Errorf("ocr configuration error: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration error: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics configuration error: %w", err)
	}
	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing configuration error: endpoint is required when tracing is enabled")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing configuration error: sample_rate must be between 0 and 1, got %v", c.Tracing.SampleRate)
		}
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	return nil
}

// Validate validates server configuration
func (sc *ServerConfig) Validate() error {
	if sc.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if sc.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive, got: %v", sc.ReadTimeout)
	}
	if sc.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be positive, got: %v", sc.WriteTimeout)
	}
	if sc.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got: %v", sc.IdleTimeout)
	}
	return nil
}

// Validate validates upload configuration
func (uc *UploadConfig) Validate() error {
	if uc.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive, got: %d", uc.MaxSize)
	}
	return nil
}

// Validate validates extraction configuration
func (ec *ExtractionConfig) Validate() error {
	switch ec.Engine {
	case "tika":
		return ec.Tika.Validate()
	case "native":
		return nil
	default:
		return fmt.Errorf("invalid engine: %q (must be tika or native)", ec.Engine)
	}
}

// Validate validates Tika configuration
func (tc *TikaConfig) Validate() error {
	u, err := url.Parse(tc.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid tika endpoint: %q", tc.Endpoint)
	}
	if tc.AutoStart {
		if tc.JarPath == "" {
			return fmt.Errorf("jar_path is required when auto_start is enabled")
		}
		if tc.StartupTimeout <= 0 {
			return fmt.Errorf("startup_timeout must be positive, got: %v", tc.StartupTimeout)
		}
	}
	if tc.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout cannot be negative, got: %v", tc.RequestTimeout)
	}
	return nil
}

// Validate validates OCR configuration
func (oc *OCRConfig) Validate() error {
	if !oc.Enabled {
		return nil
	}
	if oc.Provider != "tesseract" && oc.Provider != "gosseract" {
		return fmt.Errorf("invalid provider: %q (must be tesseract or gosseract)", oc.Provider)
	}
	if oc.PSM < 0 || oc.PSM > 13 {
		return fmt.Errorf("psm must be between 0 and 13, got: %d", oc.PSM)
	}
	if oc.OEM < 0 || oc.OEM > 3 {
		return fmt.Errorf("oem must be between 0 and 3, got: %d", oc.OEM)
	}
	return nil
}

// Validate validates logging configuration
func (lc *LoggingConfig) Validate() error {
	switch lc.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level: %q (must be trace, debug, info, warn or error)", lc.Level)
	}
	if lc.Format != "console" && lc.Format != "json" {
		return fmt.Errorf("invalid format: %q (must be console or json)", lc.Format)
	}
	return nil
}

// Validate validates metrics configuration
func (mc *MetricsConfig) Validate() error {
	if mc.Enabled && !strings.HasPrefix(mc.Path, "/") {
		return fmt.Errorf("path must start with '/', got: %q", mc.Path)
	}
	return nil
}

// Validate validates rate limit configuration
func (rc *RateLimitConfig) Validate() error {
	if !rc.Enabled {
		return nil
	}
	if rc.Max <= 0 {
		return fmt.Errorf("max must be positive, got: %d", rc.Max)
	}
	if rc.Expiration <= 0 {
		return fmt.Errorf("expiration must be positive, got: %v", rc.Expiration)
	}
	return nil
}
