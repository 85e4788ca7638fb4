// Package classify holds the two optional enrichment clients: a
// chat-completion context classifier and a knowledge-graph entity lookup.
// Both are best-effort; an unconfigured client reports Enabled() == false
// and the pipeline skips it.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

// ContextConfig configures the context classifier client.
type ContextConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// ContextClient calls a chat-completion endpoint to refine company type,
// product category and target market from extracted context.
type ContextClient struct {
	cfg    ContextConfig
	client *http.Client
	logger *zap.Logger
}

// NewContextClient constructs a ContextClient.
func NewContextClient(cfg ContextConfig, logger *zap.Logger) *ContextClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return &ContextClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether the client has both endpoint and key configured.
func (c *ContextClient) Enabled() bool {
	return c.cfg.Endpoint != "" && c.cfg.APIKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// jsonObjectPattern pulls the first JSON object out of a completion that
// may wrap it in prose or code fences.
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Classify sends the record summary and parses the JSON object the model
// returns.
func (c *ContextClient) Classify(ctx context.Context, input extraction.ClassifyInput) (extraction.ClassifyResult, error) {
	prompt := buildPrompt(input)
	reqBody, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You classify companies from extracted website data. Respond with a JSON object with keys refined_type, product_category, target_market."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return extraction.ClassifyResult{}, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return extraction.ClassifyResult{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return extraction.ClassifyResult{}, fmt.Errorf("classify call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return extraction.ClassifyResult{}, fmt.Errorf("classify call: http status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return extraction.ClassifyResult{}, fmt.Errorf("decode classify response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return extraction.ClassifyResult{}, fmt.Errorf("classify response had no choices")
	}
	return parseClassification(parsed.Choices[0].Message.Content)
}

func buildPrompt(input extraction.ClassifyInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company name: %s\n", input.Name)
	if input.Type != "" {
		fmt.Fprintf(&b, "Detected type: %s\n", input.Type)
	}
	if input.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", input.Description)
	}
	if len(input.ProductNames) > 0 {
		fmt.Fprintf(&b, "Products: %s\n", strings.Join(input.ProductNames, ", "))
	}
	return b.String()
}

// parseClassification extracts the JSON object from the completion text.
func parseClassification(content string) (extraction.ClassifyResult, error) {
	m := jsonObjectPattern.FindString(content)
	if m == "" {
		return extraction.ClassifyResult{}, fmt.Errorf("no JSON object in classify response")
	}
	var out struct {
		RefinedType     string `json:"refined_type"`
		ProductCategory string `json:"product_category"`
		TargetMarket    string `json:"target_market"`
	}
	if err := json.Unmarshal([]byte(m), &out); err != nil {
		return extraction.ClassifyResult{}, fmt.Errorf("parse classify JSON: %w", err)
	}
	return extraction.ClassifyResult{
		RefinedType:     strings.TrimSpace(out.RefinedType),
		ProductCategory: strings.TrimSpace(out.ProductCategory),
		TargetMarket:    strings.TrimSpace(out.TargetMarket),
	}, nil
}
