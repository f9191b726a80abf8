package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	require.NoError(t, err)
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, ":4101", cfg.Server.Address)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(75*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, "tika", cfg.Extraction.Engine)
	assert.Equal(t, "http://127.0.0.1:9998", cfg.Extraction.Tika.Endpoint)
	assert.Equal(t, 60*time.Second, cfg.Extraction.Tika.StartupTimeout)
	assert.False(t, cfg.Extraction.Tika.AutoStart)
	assert.Zero(t, cfg.Extraction.Tika.RequestTimeout)
	assert.True(t, cfg.OCR.Enabled)
	assert.Equal(t, "kat+eng+rus", cfg.OCR.Languages)
	assert.Equal(t, 3, cfg.OCR.PSM)
	assert.Equal(t, 3, cfg.OCR.OEM)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "ocr-gateway", cfg.Tracing.ServiceName)
	assert.False(t, cfg.Tracing.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_Environment(t *testing.T) {
	t.Run("prefixed variables", func(t *testing.T) {
		t.Setenv("GATEWAY_SERVER_ADDRESS", ":9000")
		t.Setenv("GATEWAY_OCR_PSM", "6")
		t.Setenv("GATEWAY_EXTRACTION_ENGINE", "native")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Server.Address)
		assert.Equal(t, 6, cfg.OCR.PSM)
		assert.Equal(t, "native", cfg.Extraction.Engine)
	})

	t.Run("legacy variables", func(t *testing.T) {
		t.Setenv("TIKA_MAX_FILE_SIZE", "1048576")
		t.Setenv("OCR_LANGUAGES", "eng")
		t.Setenv("TIKA_SERVER_ENDPOINT", "http://tika:9998")
		t.Setenv("TIKA_SERVER_JAR", "/opt/tika/tika-server.jar")
		t.Setenv("TIKA_PATH", "/opt/tika")
		t.Setenv("TIKA_LOG_PATH", "/var/log/tika.log")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, int64(1048576), cfg.Upload.MaxSize)
		assert.Equal(t, "eng", cfg.OCR.Languages)
		assert.Equal(t, "http://tika:9998", cfg.Extraction.Tika.Endpoint)
		assert.Equal(t, "/opt/tika/tika-server.jar", cfg.Extraction.Tika.JarPath)
		assert.Equal(t, "/opt/tika", cfg.Extraction.Tika.Path)
		assert.Equal(t, "/var/log/tika.log", cfg.Extraction.Tika.LogPath)
	})

	t.Run("prefixed variable wins over legacy", func(t *testing.T) {
		t.Setenv("OCR_LANGUAGES", "eng")
		t.Setenv("GATEWAY_OCR_LANGUAGES", "rus")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "rus", cfg.OCR.Languages)
	})

	t.Run("invalid value fails validation", func(t *testing.T) {
		t.Setenv("GATEWAY_LOGGING_FORMAT", "xml")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestServerConfig_Validate(t *testing.T) {
	valid := ServerConfig{
		Address:      ":4101",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{name: "valid config", mutate: func(*ServerConfig) {}},
		{name: "empty address", mutate: func(c *ServerConfig) { c.Address = "" }, wantErr: "server address cannot be empty"},
		{name: "zero read timeout", mutate: func(c *ServerConfig) { c.ReadTimeout = 0 }, wantErr: "read_timeout must be positive"},
		{name: "negative write timeout", mutate: func(c *ServerConfig) { c.WriteTimeout = -time.Second }, wantErr: "write_timeout must be positive"},
		{name: "zero idle timeout", mutate: func(c *ServerConfig) { c.IdleTimeout = 0 }, wantErr: "idle_timeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUploadConfig_Validate(t *testing.T) {
	assert.NoError(t, (&UploadConfig{MaxSize: 1}).Validate())
	assert.Error(t, (&UploadConfig{MaxSize: 0}).Validate())
	assert.Error(t, (&UploadConfig{MaxSize: -5}).Validate())
}

func TestExtractionConfig_Validate(t *testing.T) {
	tika := TikaConfig{Endpoint: "http://127.0.0.1:9998", StartupTimeout: time.Minute}

	tests := []struct {
		name    string
		config  ExtractionConfig
		wantErr string
	}{
		{name: "tika", config: ExtractionConfig{Engine: "tika", Tika: tika}},
		{name: "native ignores tika settings", config: ExtractionConfig{Engine: "native"}},
		{name: "unknown engine", config: ExtractionConfig{Engine: "pdfbox"}, wantErr: "invalid engine"},
		{
			name:    "bad endpoint",
			config:  ExtractionConfig{Engine: "tika", Tika: TikaConfig{Endpoint: "127.0.0.1:9998"}},
			wantErr: "invalid tika endpoint",
		},
		{
			name:    "auto start without jar",
			config:  ExtractionConfig{Engine: "tika", Tika: TikaConfig{Endpoint: tika.Endpoint, AutoStart: true, StartupTimeout: time.Minute}},
			wantErr: "jar_path is required",
		},
		{
			name: "auto start without startup timeout",
			config: ExtractionConfig{Engine: "tika", Tika: TikaConfig{
				Endpoint: tika.Endpoint, AutoStart: true, JarPath: "/opt/tika.jar",
			}},
			wantErr: "startup_timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOCRConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  OCRConfig
		wantErr bool
	}{
		{name: "tesseract", config: OCRConfig{Enabled: true, Provider: "tesseract", PSM: 3, OEM: 3}},
		{name: "gosseract", config: OCRConfig{Enabled: true, Provider: "gosseract", PSM: 6, OEM: 1}},
		{name: "disabled skips checks", config: OCRConfig{Enabled: false, Provider: "unknown", PSM: 99}},
		{name: "unknown provider", config: OCRConfig{Enabled: true, Provider: "easyocr"}, wantErr: true},
		{name: "psm out of range", config: OCRConfig{Enabled: true, Provider: "tesseract", PSM: 14}, wantErr: true},
		{name: "oem out of range", config: OCRConfig{Enabled: true, Provider: "tesseract", OEM: 4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.NoError(t, (&LoggingConfig{Level: level, Format: "json"}).Validate(), level)
	}
	assert.Error(t, (&LoggingConfig{Level: "verbose", Format: "json"}).Validate())
	assert.Error(t, (&LoggingConfig{Level: "info", Format: "text"}).Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Run("metrics path", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Metrics.Path = "metrics"
		assert.ErrorContains(t, cfg.Validate(), "metrics configuration error")

		cfg.Metrics.Enabled = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("tracing sample rate", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Tracing.Enabled = true
		cfg.Tracing.SampleRate = 1.5
		assert.ErrorContains(t, cfg.Validate(), "sample_rate")
	})

	t.Run("rate limit", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.RateLimit = RateLimitConfig{Enabled: true, Max: 0, Expiration: time.Minute}
		assert.ErrorContains(t, cfg.Validate(), "rate limit configuration error")

		cfg.RateLimit.Max = 10
		assert.NoError(t, cfg.Validate())
	})
}
