package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTikaEndpoint = "http://127.0.0.1:9998"
	defaultTikaPort     = "9998"
	tikaPollInterval    = 250 * time.Millisecond
)

// TikaConfig configures the Apache Tika server engine
type TikaConfig struct {
	Endpoint       string
	JarPath        string
	Path           string
	LogPath        string
	JavaPath       string
	AutoStart      bool
	StartupTimeout time.Duration
	RequestTimeout time.Duration // zero means no limit
}

// TikaEngine talks to an Apache Tika server over HTTP. With AutoStart it also
// owns the server process.
type TikaEngine struct {
	config     TikaConfig
	endpoint   *url.URL
	httpClient *http.Client

	mu      sync.Mutex
	cmd     *exec.Cmd
	exited  chan struct{}
	logFile *os.File
}

// NewTikaEngine creates a Tika engine for the configured endpoint
func NewTikaEngine(config TikaConfig) (*TikaEngine, error) {
	if config.Endpoint == "" {
		config.Endpoint = DefaultTikaEndpoint
	}
	endpoint, err := url.Parse(strings.TrimSuffix(config.Endpoint, "/"))
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid tika endpoint %q", config.Endpoint)
	}
	if config.AutoStart && config.JarPath == "" {
		return nil, errors.New("tika auto start requires a server jar path")
	}
	if config.JavaPath == "" {
		config.JavaPath = "java"
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = 60 * time.Second
	}

	return &TikaEngine{
		config:     config,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
	}, nil
}

// Name returns the engine name
func (t *TikaEngine) Name() string {
	return string(EngineTypeTika)
}

// Parse sends the document to the Tika server and returns its plain text
func (t *TikaEngine) Parse(ctx context.Context, doc Document) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.endpoint.String()+"/tika", bytes.NewReader(doc.Data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain; charset=utf-8")
	req.Header.Set("Content-Type", "application/octet-stream")
	if doc.Name != "" {
		req.Header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("tika returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return string(body), nil
}

// EnsureRunning makes sure the Tika server answers. When AutoStart is set and
// the server is down, it launches the jar and waits up to StartupTimeout.
func (t *TikaEngine) EnsureRunning(ctx context.Context) error {
	if err := t.ping(ctx); err == nil {
		return nil
	} else if !t.config.AutoStart {
		return fmt.Errorf("tika server not reachable at %s: %w", t.endpoint, err)
	}

	if err := t.start(); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, t.config.StartupTimeout)
	defer cancel()

	ticker := time.NewTicker(tikaPollInterval)
	defer ticker.Stop()

	for {
		if err := t.ping(waitCtx); err == nil {
			log.Info().Str("endpoint", t.endpoint.String()).Msg("Tika server is ready")
			return nil
		}

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("tika server did not become ready within %s", t.config.StartupTimeout)
		case <-t.exitedChan():
			return errors.New("tika server process exited during startup")
		case <-ticker.C:
		}
	}
}

func (t *TikaEngine) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint.String()+"/tika", nil)
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tika returned status %d", resp.StatusCode)
	}
	return nil
}

// start launches the server process unless one is already running.
func (t *TikaEngine) start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil {
		select {
		case <-t.exited:
		default:
			return nil
		}
	}

	host := t.endpoint.Hostname()
	port := t.endpoint.Port()
	if port == "" {
		port = defaultTikaPort
	}

	cmd := exec.Command(t.config.JavaPath, "-jar", t.config.JarPath, "--host", host, "--port", port)
	cmd.Dir = t.config.Path

	if t.config.LogPath != "" && t.logFile == nil {
		f, err := os.OpenFile(t.config.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open tika log file: %w", err)
		}
		t.logFile = f
	}
	if t.logFile != nil {
		cmd.Stdout = t.logFile
		cmd.Stderr = t.logFile
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start tika server: %w", err)
	}

	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		log.Warn().Err(err).Int("pid", cmd.Process.Pid).Msg("Tika server process exited")
		close(exited)
	}()

	t.cmd = cmd
	t.exited = exited

	log.Info().
		Str("jar", t.config.JarPath).
		Str("address", net.JoinHostPort(host, port)).
		Int("pid", cmd.Process.Pid).
		Msg("Started Tika server")

	return nil
}

func (t *TikaEngine) exitedChan() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exited
}

// Close stops a server process started by this engine
func (t *TikaEngine) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd != nil {
		select {
		case <-t.exited:
		default:
			if err := t.cmd.Process.Kill(); err != nil {
				log.Warn().Err(err).Msg("Failed to stop Tika server")
			}
			<-t.exited
		}
		t.cmd = nil
	}

	if t.logFile != nil {
		err := t.logFile.Close()
		t.logFile = nil
		return err
	}
	return nil
}
