package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 20 * time.Second

// Client talks to the bottle/text detection service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a perception client.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("perception base url required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Detect submits image bytes and returns detected bottles and text
// fragments. An error here is total pipeline failure: there is nothing to
// match without perception output.
func (c *Client) Detect(ctx context.Context, imageData []byte) (*Observation, error) {
	if len(imageData) == 0 {
		return nil, errors.New("perception detect: empty image")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("perception detect: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perception detect: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("perception detect: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("perception detect: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var obs Observation
	if err := json.Unmarshal(body, &obs); err != nil {
		return nil, fmt.Errorf("perception detect: decode response: %w", err)
	}
	if strings.TrimSpace(obs.ImageID) == "" {
		obs.ImageID = uuid.NewString()
	}
	for i := range obs.Detections {
		if strings.TrimSpace(obs.Detections[i].ID) == "" {
			obs.Detections[i].ID = fmt.Sprintf("bottle-%d", i+1)
		}
	}
	return &obs, nil
}
