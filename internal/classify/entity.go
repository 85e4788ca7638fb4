package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

// EntityConfig configures the knowledge-graph entity lookup client.
type EntityConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// EntityClient resolves a company name against a knowledge-graph search
// endpoint to recover an entity type and description.
type EntityClient struct {
	cfg    EntityConfig
	client *http.Client
	logger *zap.Logger
}

// NewEntityClient constructs an EntityClient.
func NewEntityClient(cfg EntityConfig, logger *zap.Logger) *EntityClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &EntityClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether the client has both endpoint and key configured.
func (c *EntityClient) Enabled() bool {
	return c.cfg.Endpoint != "" && c.cfg.APIKey != ""
}

type entityResponse struct {
	ItemListElement []struct {
		Result struct {
			Name                string `json:"name"`
			Description         string `json:"description"`
			DetailedDescription struct {
				ArticleBody string `json:"articleBody"`
			} `json:"detailedDescription"`
		} `json:"result"`
	} `json:"itemListElement"`
}

// Lookup searches for the company by name and returns the top match.
func (c *EntityClient) Lookup(ctx context.Context, name string) (extraction.EntityResult, error) {
	if strings.TrimSpace(name) == "" {
		return extraction.EntityResult{}, fmt.Errorf("entity lookup: empty name")
	}
	q := url.Values{}
	q.Set("query", name)
	q.Set("key", c.cfg.APIKey)
	q.Set("limit", "1")
	q.Set("types", "Organization")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return extraction.EntityResult{}, fmt.Errorf("build entity request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return extraction.EntityResult{}, fmt.Errorf("entity lookup call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return extraction.EntityResult{}, fmt.Errorf("entity lookup call: http status %d", resp.StatusCode)
	}

	var parsed entityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return extraction.EntityResult{}, fmt.Errorf("decode entity response: %w", err)
	}
	if len(parsed.ItemListElement) == 0 {
		return extraction.EntityResult{}, fmt.Errorf("no entity match for %q", name)
	}
	top := parsed.ItemListElement[0].Result
	return extraction.EntityResult{
		Type:        strings.TrimSpace(top.Description),
		Description: strings.TrimSpace(top.DetailedDescription.ArticleBody),
	}, nil
}
