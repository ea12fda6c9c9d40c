package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/stemsplit/api/internal/config"
)

// HTTPSeparator implements Separator against the separation microservice.
type HTTPSeparator struct {
	httpClient *http.Client
	baseURL    string
	sampleRate int
}

// NewHTTPSeparator creates a new separation client
func NewHTTPSeparator(cfg *config.EngineConfig) *HTTPSeparator {
	return &HTTPSeparator{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:    cfg.ServiceURL,
		sampleRate: cfg.SampleRate,
	}
}

type separateResponse struct {
	SampleRate int                    `json:"sample_rate"`
	Stems      map[string][][]float32 `json:"stems"`
}

// Separate uploads the audio file to the separation endpoint and returns
// the per-stem sample data.
func (c *HTTPSeparator) Separate(ctx context.Context, audioPath string) (*SeparationResult, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/separate", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("separation service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed separateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	result := &SeparationResult{
		SampleRate: parsed.SampleRate,
		Stems:      make(map[string]Samples, len(parsed.Stems)),
	}
	if result.SampleRate == 0 {
		result.SampleRate = c.sampleRate
	}
	for name, channels := range parsed.Stems {
		result.Stems[name] = Samples(channels)
	}
	return result, nil
}

// SampleRate returns the engine's native sample rate.
func (c *HTTPSeparator) SampleRate() int {
	return c.sampleRate
}

// HealthCheck checks if the separation service is available
func (c *HTTPSeparator) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("separation service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *HTTPSeparator) IsConfigured() bool {
	return c.baseURL != ""
}
