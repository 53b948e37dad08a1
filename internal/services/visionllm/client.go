package visionllm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vintner/internal/services/llm"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings required to talk to the vision model.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// Client wraps a multimodal OpenRouter chat completion endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a vision client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	return client
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}

// BottleHint describes one unresolved bottle for the model: where it sits
// in the image and what text, if any, was read from it.
type BottleHint struct {
	ID      string  `json:"id"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Text    string  `json:"text,omitempty"`
}

// Identify sends the shelf image with per-bottle hints and returns one
// identification per bottle the model recognizes.
func (c *Client) Identify(ctx context.Context, image []byte, hints []BottleHint) ([]llm.Identification, error) {
	if !c.Configured() {
		return nil, errors.New("vision identify: api key required")
	}
	if len(image) == 0 {
		return nil, errors.New("vision identify: image required")
	}
	if len(hints) == 0 {
		return nil, nil
	}

	encodedHints, err := json.Marshal(struct {
		Bottles []BottleHint `json:"bottles"`
	}{hints})
	if err != nil {
		return nil, fmt.Errorf("vision identify: encode hints: %w", err)
	}

	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
	payload := visionRequest{
		Model: c.cfg.Model,
		Messages: []visionMessage{
			{Role: "system", Content: []contentPart{{Type: "text", Text: visionSystemPrompt}}},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: string(encodedHints)},
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			}},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	content, err := c.send(ctx, payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []llm.Identification `json:"results"`
	}
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("vision identify: parse payload: %w", err)
	}

	known := make(map[string]bool, len(hints))
	for _, hint := range hints {
		known[hint.ID] = true
	}

	results := make([]llm.Identification, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		result.ID = strings.TrimSpace(result.ID)
		result.WineName = strings.TrimSpace(result.WineName)
		if result.ID == "" || result.WineName == "" || !known[result.ID] {
			continue
		}
		if result.Confidence < 0 {
			result.Confidence = 0
		}
		if result.Confidence > 1 {
			result.Confidence = 1
		}
		results = append(results, result)
	}
	return results, nil
}

type visionRequest struct {
	Model          string            `json:"model"`
	Messages       []visionMessage   `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type visionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

func (c *Client) send(ctx context.Context, payload visionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("vision request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("vision request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vision request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("vision request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("vision request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("vision request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errors.New("vision request: empty content")
}

const visionSystemPrompt = `You identify wine bottles in a photograph of a retail shelf.

You receive the photograph and a JSON object with a "bottles" array. Each bottle has an "id", its approximate position in the image as "center_x"/"center_y" (fractions of image width and height), and optionally "text" that was read from its label.

Look at each listed bottle position and identify the wine from its label, capsule, and bottle shape. Return the full producer + wine name (no vintage year, no bottle size). If a bottle cannot be identified visually, omit it.

Respond with JSON only, in this shape:
{"results":[{"id":"...","wine_name":"...","confidence":0.0,"estimated_rating":0.0}]}

"confidence" is your certainty in [0,1]. "estimated_rating" is the wine's typical critic/community standing on a 0-5 scale; omit it if you do not know.`
