package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vintner/internal/services"
)

// CandidateHint is a database candidate forwarded to the model so it can
// confirm instead of guessing.
type CandidateHint struct {
	Name   string   `json:"name"`
	Rating *float64 `json:"rating,omitempty"`
}

// ValidationItem is one unresolved bottle submitted for identification.
type ValidationItem struct {
	ID         string          `json:"id"`
	RawText    string          `json:"raw_text"`
	Normalized string          `json:"normalized_text"`
	Candidates []CandidateHint `json:"candidates,omitempty"`
}

// Identification is the model's answer for one item. An empty WineName
// means the model could not identify the bottle. IsValidMatch reports
// whether the model confirmed one of the forwarded database candidates,
// even when WineName spells it differently.
type Identification struct {
	ID              string   `json:"id"`
	IsValidMatch    bool     `json:"is_valid_match"`
	WineName        string   `json:"wine_name"`
	Confidence      float64  `json:"confidence"`
	EstimatedRating *float64 `json:"estimated_rating,omitempty"`
	WineType        string   `json:"wine_type,omitempty"`
	Region          string   `json:"region,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
}

type batchResponse struct {
	Results []Identification `json:"results"`
}

// ValidateBatch submits all unresolved bottles in a single request. Results
// line up by item ID; items the model could not identify are omitted.
func (c *Client) ValidateBatch(ctx context.Context, items []ValidationItem) ([]Identification, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}
	if len(items) == 0 {
		return nil, nil
	}
	return c.identifyBatch(ctx, validationSystemPrompt, items, nil)
}

// RescueBatch is the cascade's last attempt: everything still unresolved is
// submitted together with orphan label fragments so the model can
// cross-reference text that was never attached to a bottle.
func (c *Client) RescueBatch(ctx context.Context, items []ValidationItem, orphanTexts []string) ([]Identification, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}
	if len(items) == 0 {
		return nil, nil
	}
	return c.identifyBatch(ctx, rescueSystemPrompt, items, orphanTexts)
}

func (c *Client) identifyBatch(ctx context.Context, systemPrompt string, items []ValidationItem, orphanTexts []string) ([]Identification, error) {
	request := struct {
		Bottles []ValidationItem `json:"bottles"`
		Orphans []string         `json:"orphan_texts,omitempty"`
	}{Bottles: items, Orphans: orphanTexts}

	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("llm batch: encode items: %w", err)
	}

	content, err := c.CompleteJSON(ctx, systemPrompt, string(encoded))
	if err != nil {
		return nil, err
	}

	var parsed batchResponse
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("llm batch: parse payload: %w", err)
	}

	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.ID] = true
	}

	results := make([]Identification, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		result.ID = strings.TrimSpace(result.ID)
		result.WineName = strings.TrimSpace(result.WineName)
		if result.ID == "" || result.WineName == "" {
			continue
		}
		if !known[result.ID] {
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

// ErrUnconfigured indicates the client has no API key and the cascade
// should skip its LLM stages. It carries the configuration marker so the
// cascade classifies it as permanent for the request.
var ErrUnconfigured = services.Wrap(services.ErrConfiguration, "llm", "", "client not configured", nil)

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != ""
}
