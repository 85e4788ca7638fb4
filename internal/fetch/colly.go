package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// CollyGetter implements PageGetter using the Colly collector.
type CollyGetter struct {
	userAgent     string
	timeout       time.Duration
	baseCollector *colly.Collector
}

// NewCollyGetter builds a CollyGetter with connection pooling shared across
// requests via the base collector.
func NewCollyGetter(userAgent string, timeout time.Duration) *CollyGetter {
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CollyGetter{
		userAgent:     userAgent,
		timeout:       timeout,
		baseCollector: c,
	}
}

// Get executes a single HTTP GET and returns the status code and body.
func (g *CollyGetter) Get(ctx context.Context, url string) (int, string, error) {
	collector := g.baseCollector.Clone()
	if g.userAgent != "" {
		collector.UserAgent = g.userAgent
	}
	collector.SetRequestTimeout(g.timeout)

	var (
		status   int
		body     string
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := collector.Visit(url); err != nil && fetchErr == nil {
			fetchErr = err
		}
		collector.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return 0, "", fmt.Errorf("fetch %s: %w", url, ctx.Err())
	}

	if fetchErr != nil && status == 0 {
		return 0, "", fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	return status, body, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}
}
