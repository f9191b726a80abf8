// Package client provides the HTTP client for the OCR gateway API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// minPollInterval bounds WaitReady polling
const minPollInterval = 200 * time.Millisecond

// Client is the OCR gateway API client
type Client struct {
	// BaseURL is the gateway URL
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Debug enables debug logging
	Debug bool

	// UserAgent to use for requests
	UserAgent string
}

// ClientOption configures the client
type ClientOption func(*Client)

// NewClient creates a new API client
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		UserAgent: "ocrctl/1.0",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithDebug enables debug mode
func WithDebug(debug bool) ClientOption {
	return func(c *Client) {
		c.Debug = debug
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.HTTPClient.Timeout = timeout
	}
}

// Block is one recognized word with its geometry
type Block struct {
	Text       string  `json:"text" yaml:"text"`
	Left       int     `json:"left" yaml:"left"`
	Top        int     `json:"top" yaml:"top"`
	Width      int     `json:"width" yaml:"width"`
	Height     int     `json:"height" yaml:"height"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// RecognizeResult is the gateway's recognition response
type RecognizeResult struct {
	PrimaryText  string  `json:"primaryText" yaml:"primaryText"`
	OCRText      string  `json:"ocrText" yaml:"ocrText"`
	CombinedText string  `json:"combinedText" yaml:"combinedText"`
	LanguageHint string  `json:"languageHint" yaml:"languageHint"`
	Blocks       []Block `json:"blocks" yaml:"blocks"`
}

// HealthStatus is the gateway's health response
type HealthStatus struct {
	Status    string          `json:"status" yaml:"status"`
	Detail    string          `json:"detail,omitempty" yaml:"detail,omitempty"`
	Services  map[string]bool `json:"services" yaml:"services"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// LanguageInfo is the gateway's language configuration
type LanguageInfo struct {
	Default   string   `json:"default" yaml:"default"`
	Available []string `json:"available" yaml:"available"`
}

func (c *Client) url(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)

	if c.Debug {
		fmt.Printf("DEBUG: %s %s\n", req.Method, req.URL.String())
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Recognize uploads a document as multipart field "file". An empty languages
// value leaves the choice to the gateway default.
func (c *Client) Recognize(ctx context.Context, filename string, data []byte, languages string) (*RecognizeResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	query := url.Values{}
	if languages != "" {
		query.Set("languages", languages)
	}
	target, err := c.url("/recognize", query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var result RecognizeResult
	if err := DecodeResponse(resp, &result); err != nil {
		return nil, err
	}
	if result.Blocks == nil {
		result.Blocks = []Block{}
	}
	return &result, nil
}

// Health fetches the gateway health. A degraded gateway returns both the
// decoded status and an *APIError.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read health response: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, apiErrorFromBody(resp.StatusCode, data)
	}
	if resp.StatusCode >= 400 {
		return &status, apiErrorFromBody(resp.StatusCode, data)
	}
	return &status, nil
}

// Languages fetches the default language spec and installed OCR packs
func (c *Client) Languages(ctx context.Context) (*LanguageInfo, error) {
	resp, err := c.get(ctx, "/languages")
	if err != nil {
		return nil, err
	}

	var info LanguageInfo
	if err := DecodeResponse(resp, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ready reports whether the gateway answers its liveness route
func (c *Client) Ready(ctx context.Context) bool {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < 300
}

// WaitReady polls the gateway until it is ready, the timeout elapses or ctx
// is cancelled.
func (c *Client) WaitReady(ctx context.Context, interval, timeout time.Duration) error {
	if interval < minPollInterval {
		interval = minPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if c.Ready(ctx) {
			return nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("gateway at %s did not become ready within %s", c.BaseURL, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	target, err := c.url(path, nil)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// APIError represents an API error response
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("API error with status %d", e.StatusCode)
}

func apiErrorFromBody(status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Detail == "" {
		apiErr.Detail = strings.TrimSpace(string(body))
	}
	apiErr.StatusCode = status
	return &apiErr
}

// ParseError parses an error response
func ParseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("failed to read error response: %v", err),
		}
	}
	return apiErrorFromBody(resp.StatusCode, body)
}

// DecodeResponse decodes a successful response into the target
func DecodeResponse(resp *http.Response, target interface{}) error {
	if resp.StatusCode >= 400 {
		return ParseError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	if target == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
