package stages

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

var breadcrumbPattern = regexp.MustCompile(`(?is)<(?:nav|ol|ul|div)[^>]*\b(?:id|class)="[^"]*breadcrumb[^"]*"[^>]*>([\s\S]*?)</(?:nav|ol|ul|div)>`)

// breadcrumbSkip are navigation roots, not categories.
var breadcrumbSkip = map[string]struct{}{
	"home":  {},
	"index": {},
	"main":  {},
	"start": {},
}

var productSectionPattern = regexp.MustCompile(`(?is)<(?:div|section|ul)[^>]*\b(?:id|class)="[^"]*\b(?:products?|shop|catalog|catalogue|store|items)\b[^"]*"[^>]*>([\s\S]*?)</(?:div|section|ul)>`)

var productsPageRules = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<a[^>]*\bhref="([^"]*(?:products|catalogue|catalog|shop)[^"]*)"`),
}

// Paths that never lead to product pages.
var excludedPathFragments = []string{
	"/about", "/contact", "/privacy", "/terms", "/blog", "/news",
	"/careers", "/faq", "/support", "/help", "/login", "/register",
	"/cart", "/checkout", "/account", "/search", "/sitemap", "/policy",
}

var skipHrefPrefixes = []string{"#", "javascript:", "mailto:", "tel:"}

var skipHrefKeywords = []string{"login", "cart", "account", "contact"}

var productHrefHints = []string{
	"/product", "/item", "/p/", "/shop/", "/detail", "/buy", "/sku",
}

var productTextHints = regexp.MustCompile(`(?i)\b(?:buy|order|view|shop|details?|add to cart)\b|[$£€]\s*\d`)

// DiscoveryStage finds product page links and breadcrumb categories on a
// company page.
type DiscoveryStage struct {
	oplog  extraction.OperationLogger
	logger *zap.Logger
}

// NewDiscoveryStage constructs a DiscoveryStage.
func NewDiscoveryStage(oplog extraction.OperationLogger, logger *zap.Logger) *DiscoveryStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscoveryStage{oplog: oplog, logger: logger}
}

// Categories returns breadcrumb trail entries, skipping navigation roots
// like Home. Order is preserved, duplicates removed.
func (s *DiscoveryStage) Categories(content string) []string {
	m := breadcrumbPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var categories []string
	for _, a := range anchorTextOnly.FindAllStringSubmatch(m[1], -1) {
		text := cleanHTML(a[1])
		if text == "" {
			continue
		}
		if _, skip := breadcrumbSkip[strings.ToLower(text)]; skip {
			continue
		}
		categories = append(categories, text)
	}
	return dedupe(categories)
}

// ProductLinks returns up to max absolute product-page URLs found on the
// page. Links inside product-labelled sections are preferred; when the page
// has none, every anchor is considered. Off-domain, navigational and
// utility links are filtered out.
func (s *DiscoveryStage) ProductLinks(content, baseURL string, max int) []string {
	defer func() {
		if r := recover(); r != nil {
			s.oplog.LogError(baseURL, "", "ProductDiscoveryError",
				fmt.Sprintf("error discovering product links: %v", r), "")
		}
	}()

	scopes := productSectionPattern.FindAllStringSubmatch(content, -1)
	var candidates [][]string
	if len(scopes) > 0 {
		for _, scope := range scopes {
			candidates = append(candidates, anchorPattern.FindAllStringSubmatch(scope[1], -1)...)
		}
	} else {
		candidates = anchorPattern.FindAllStringSubmatch(content, -1)
	}

	seen := make(map[string]struct{})
	var links []string
	for _, a := range candidates {
		href, text := strings.TrimSpace(a[1]), cleanHTML(a[2])
		if !s.keepLink(href, text, baseURL) {
			continue
		}
		resolved := extraction.ResolveURL(href, baseURL)
		key := extraction.NormalizeURL(resolved)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		links = append(links, resolved)
		if max > 0 && len(links) >= max {
			break
		}
	}
	return links
}

// keepLink applies the navigational and product-likelihood filters.
func (s *DiscoveryStage) keepLink(href, text, baseURL string) bool {
	if href == "" || text == "" {
		return false
	}
	lower := strings.ToLower(href)
	for _, prefix := range skipHrefPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	for _, kw := range skipHrefKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	resolved := extraction.ResolveURL(href, baseURL)
	if !extraction.SameDomain(resolved, baseURL) {
		return false
	}
	for _, frag := range excludedPathFragments {
		if strings.Contains(strings.ToLower(resolved), frag) {
			return false
		}
	}
	return likelyProductLink(lower, text)
}

// likelyProductLink guesses whether an in-domain link points at a product
// page, from URL shape or anchor text.
func likelyProductLink(lowerHref, text string) bool {
	for _, hint := range productHrefHints {
		if strings.Contains(lowerHref, hint) {
			return true
		}
	}
	if productTextHints.MatchString(text) {
		return true
	}
	// Short, title-like anchor text on a deep path reads like a product name.
	depth := strings.Count(strings.TrimSuffix(lowerHref, "/"), "/")
	return depth >= 2 && len(text) >= 3 && len(text) <= 60
}

// ProductsPageURL returns the first products/catalogue/shop link on the
// page resolved against baseURL, or "" when the page has none.
func (s *DiscoveryStage) ProductsPageURL(content, baseURL string) string {
	for _, p := range productsPageRules {
		if m := p.FindStringSubmatch(content); m != nil {
			resolved := extraction.ResolveURL(m[1], baseURL)
			if extraction.SameDomain(resolved, baseURL) {
				return resolved
			}
		}
	}
	return ""
}
