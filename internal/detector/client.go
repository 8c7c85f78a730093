package detector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shiv122/brand-detector/internal/logger"
)

// Client is an HTTP client for the model inference service. The service
// is treated as an opaque capability: given pixels and a confidence
// threshold, it returns a list of detections and an optional annotated
// render.
type Client struct {
	serviceURL string
	httpClient *http.Client
	logger     *logger.Logger
}

// ClientConfig contains configuration for the inference client
type ClientConfig struct {
	ServiceURL string
	Timeout    time.Duration
}

// NewClient creates a new inference service client
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		serviceURL: config.ServiceURL,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     log,
	}
}

// Detect performs inference on a single JPEG image
func (c *Client) Detect(ctx context.Context, image []byte, confidence float64, model string) (*Result, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image buffer")
	}

	req := InferenceRequest{
		Image:               base64.StdEncoding.EncodeToString(image),
		ConfidenceThreshold: confidence,
		Model:               model,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/inference", c.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Inference service returned error",
			"status", resp.StatusCode,
			"response", string(body),
		)
		return nil, fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, string(body))
	}

	var inferenceResp InferenceResponse
	if err := json.Unmarshal(body, &inferenceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	result := &Result{
		Detections:      inferenceResp.Detections,
		InferenceTimeMs: inferenceResp.InferenceTimeMs,
	}
	if inferenceResp.AnnotatedImage != "" {
		annotated, err := base64.StdEncoding.DecodeString(inferenceResp.AnnotatedImage)
		if err != nil {
			c.logger.Warn("Failed to decode annotated render", "error", err)
		} else {
			result.Annotated = annotated
		}
	}

	c.logger.Debug("Inference completed",
		"detection_count", len(result.Detections),
		"inference_time_ms", inferenceResp.InferenceTimeMs,
		"request_duration_ms", time.Since(startTime).Milliseconds(),
	)

	return result, nil
}

// DeviceInfo retrieves compute device information from the inference service
func (c *Client) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	url := fmt.Sprintf("%s/api/v1/device", c.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var info DeviceInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &info, nil
}

// HealthCheck checks if the inference service is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/health/ready", c.serviceURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service health check failed: status %d", resp.StatusCode)
	}

	return nil
}
