// Package crawl walks discovered product links and assembles product
// records for one extraction run.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/fetch"
	"github.com/strykerlabs/webstryker/internal/stages"
)

const (
	defaultMaxProducts = 20
	defaultCrawlDelay  = 300 * time.Millisecond
)

// Config bounds one crawl. DisableLinkFollow keeps the crawl on the company
// page itself (embedded-product extraction only).
type Config struct {
	MaxProducts       int
	Delay             time.Duration
	DisableLinkFollow bool
}

// Crawler discovers product links on a company page and fetches each one,
// honoring the run's stop flag between pages.
type Crawler struct {
	fetcher   extraction.Fetcher
	getter    fetch.PageGetter
	discovery *stages.DiscoveryStage
	detail    *stages.DetailStage
	states    extraction.StateRegistry
	oplog     extraction.OperationLogger
	logger    *zap.Logger
	cfg       Config

	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a Crawler. getter is used for the single products-page
// lookup; fetcher (with its retry loop) fetches each product page.
func New(
	fetcher extraction.Fetcher,
	getter fetch.PageGetter,
	discovery *stages.DiscoveryStage,
	detail *stages.DetailStage,
	states extraction.StateRegistry,
	oplog extraction.OperationLogger,
	cfg Config,
	logger *zap.Logger,
) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxProducts <= 0 {
		cfg.MaxProducts = defaultMaxProducts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultCrawlDelay
	}
	return &Crawler{
		fetcher:   fetcher,
		getter:    getter,
		discovery: discovery,
		detail:    detail,
		states:    states,
		oplog:     oplog,
		logger:    logger,
		cfg:       cfg,
		sleep:     sleepCtx,
	}
}

// Crawl returns the products reachable from the page content. Links are
// visited in discovery order, each URL at most once, up to MaxProducts.
// Breadcrumb categories map onto main category, sub category and product
// family by position.
func (c *Crawler) Crawl(ctx context.Context, content, baseURL, extractionID string) []extraction.ProductRecord {
	categories := c.discovery.Categories(content)
	if c.cfg.DisableLinkFollow {
		return c.embeddedProduct(content, baseURL, categories)
	}

	links := c.discovery.ProductLinks(content, baseURL, c.cfg.MaxProducts)
	if len(links) == 0 {
		links = c.productsPageLinks(ctx, content, baseURL)
	}
	if len(links) == 0 {
		return c.embeddedProduct(content, baseURL, categories)
	}

	visited := make(map[string]struct{}, len(links))
	var products []extraction.ProductRecord
	for i, link := range links {
		if c.states.IsStopped(extractionID) {
			break
		}
		key := extraction.NormalizeURL(link)
		if _, dup := visited[key]; dup {
			continue
		}
		visited[key] = struct{}{}

		if i > 0 {
			if err := c.sleep(ctx, c.cfg.Delay); err != nil {
				break
			}
		}

		body, err := c.fetcher.Fetch(ctx, link, extractionID)
		if err != nil {
			if errors.Is(err, extraction.ErrStopped) || fetch.IsCancelled(err) {
				break
			}
			c.oplog.LogError(link, extractionID, "ProductFetchError",
				fmt.Sprintf("error fetching product page: %v", err), "")
			continue
		}

		rec := c.detail.Extract(body, link)
		applyCategories(&rec, categories)
		if rec.Valid() {
			products = append(products, rec)
		}
		if len(products) >= c.cfg.MaxProducts {
			break
		}
	}
	return products
}

// productsPageLinks follows the page's products/catalogue link, if any, and
// discovers product links there.
func (c *Crawler) productsPageLinks(ctx context.Context, content, baseURL string) []string {
	pageURL := c.discovery.ProductsPageURL(content, baseURL)
	if pageURL == "" || c.getter == nil {
		return nil
	}
	status, body, err := c.getter.Get(ctx, pageURL)
	if err != nil || status != http.StatusOK {
		c.oplog.LogError(baseURL, "", "ProductsPageFetchError",
			fmt.Sprintf("error fetching products page %s: %v", pageURL, err), "")
		return nil
	}
	return c.discovery.ProductLinks(body, pageURL, c.cfg.MaxProducts)
}

// embeddedProduct treats the company page itself as a product page. Kept
// only when it yields a usable name.
func (c *Crawler) embeddedProduct(content, baseURL string, categories []string) []extraction.ProductRecord {
	rec := c.detail.Extract(content, baseURL)
	if rec.Name == "" {
		return nil
	}
	applyCategories(&rec, categories)
	return []extraction.ProductRecord{rec}
}

// applyCategories maps breadcrumb entries onto the category hierarchy.
func applyCategories(rec *extraction.ProductRecord, categories []string) {
	if len(categories) > 0 && rec.MainCategory == "" {
		rec.MainCategory = categories[0]
	}
	if len(categories) > 1 && rec.SubCategory == "" {
		rec.SubCategory = categories[1]
	}
	if len(categories) > 2 && rec.ProductFamily == "" {
		rec.ProductFamily = categories[2]
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
