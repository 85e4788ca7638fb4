package stages

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

const maxProductImages = 5

var productNameRules = []textRule{
	{re: regexp.MustCompile(`(?is)<h1[^>]*\b(?:id|class)="[^"]*\b(?:product|title|name)\b[^"]*"[^>]*>([\s\S]*?)</h1>`), policy: overwriteIfEmpty, clean: true},
	{re: regexp.MustCompile(`(?is)<h1[^>]*>([\s\S]*?)</h1>`), policy: overwriteIfEmpty, clean: true},
	{re: regexp.MustCompile(`(?is)<meta\s+property="og:title"\s+content="([^"]*)"`), policy: overwriteIfEmpty},
}

var productPriceRules = []textRule{
	{re: regexp.MustCompile(`(?is)<[^>]*\b(?:id|class)="[^"]*\bprice\b[^"]*"[^>]*>([\s\S]*?)</`), policy: overwriteIfEmpty, clean: true},
	{re: regexp.MustCompile(`(?is)<meta\s+(?:property|itemprop)="(?:product:price:amount|price)"\s+content="([^"]*)"`), policy: overwriteIfEmpty},
	{re: regexp.MustCompile(`([$£€]\s?\d+(?:[.,]\d{2})?)`), policy: overwriteIfEmpty},
}

var productDescriptionRules = []textRule{
	{re: regexp.MustCompile(`(?is)<(?:div|section|p)[^>]*\b(?:id|class)="[^"]*\b(?:product-)?description\b[^"]*"[^>]*>([\s\S]*?)</(?:div|section|p)>`), policy: overwriteIfEmpty, clean: true},
	{re: regexp.MustCompile(`(?is)<meta\s+name="description"\s+content="([^"]*)"`), policy: overwriteIfEmpty},
}

var productQuantityRules = []textRule{
	{re: regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?\s*(?:kg|g|lb|lbs|oz|ml|l|litre|liter|pack|pcs|pieces|units?|count|ct))\b`), policy: overwriteIfEmpty},
	{re: regexp.MustCompile(`(?is)<[^>]*\b(?:id|class)="[^"]*\b(?:quantity|qty|size|weight)\b[^"]*"[^>]*>([\s\S]*?)</`), policy: overwriteIfEmpty, clean: true},
}

var productSpecRules = []textRule{
	{re: regexp.MustCompile(`(?is)<(?:table|div|section|ul)[^>]*\b(?:id|class)="[^"]*\b(?:spec|specification|specs|tech)[^"]*"[^>]*>([\s\S]*?)</(?:table|div|section|ul)>`), policy: overwriteIfEmpty, clean: true},
}

var productImageRules = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<img[^>]*\b(?:id|class)="[^"]*\bproduct[^"]*"[^>]*src="([^"]*)"`),
	regexp.MustCompile(`(?is)<img[^>]*\bsrc="([^"]*)"[^>]*\b(?:id|class)="[^"]*\bproduct[^"]*"`),
	regexp.MustCompile(`(?is)<meta\s+property="og:image"\s+content="([^"]*)"`),
}

var anyImagePattern = regexp.MustCompile(`(?is)<img[^>]*\bsrc="([^"]*)"`)

// Image sources that are page chrome, not product photos.
var imageExclusions = []string{"icon", "logo", "banner", "pixel", ".svg"}

// DetailStage extracts the fields of one product page: structured data
// first, heuristic patterns second.
type DetailStage struct {
	oplog  extraction.OperationLogger
	logger *zap.Logger
}

// NewDetailStage constructs a DetailStage.
func NewDetailStage(oplog extraction.OperationLogger, logger *zap.Logger) *DetailStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailStage{oplog: oplog, logger: logger}
}

// Extract builds a ProductRecord from the product page at pageURL.
func (s *DetailStage) Extract(content, pageURL string) extraction.ProductRecord {
	rec := extraction.ProductRecord{URL: pageURL}
	defer func() {
		if r := recover(); r != nil {
			s.oplog.LogError(pageURL, "", "ProductDetailError",
				fmt.Sprintf("error extracting product details: %v", r), "")
		}
	}()

	data := structuredData(content)
	rec.Name = structuredString(data, "name")
	rec.Price = structuredString(data, "offers", "price")
	rec.Description = structuredString(data, "description")
	if img := structuredString(data, "image"); img != "" && keepImage(img) {
		rec.Images = append(rec.Images, extraction.ResolveURL(img, pageURL))
	}

	for _, rule := range productNameRules {
		rec.Name = rule.apply(rec.Name, content)
	}
	if rec.Name == "" {
		rec.Name = titleFirstSegment(content)
	}
	for _, rule := range productPriceRules {
		rec.Price = rule.apply(rec.Price, content)
	}
	for _, rule := range productDescriptionRules {
		rec.Description = rule.apply(rec.Description, content)
	}
	for _, rule := range productQuantityRules {
		rec.Quantity = rule.apply(rec.Quantity, content)
	}
	for _, rule := range productSpecRules {
		rec.Specifications = rule.apply(rec.Specifications, content)
	}

	rec.Images = s.collectImages(rec.Images, content, pageURL)
	return rec
}

// collectImages gathers product-labelled images first, then any page image,
// skipping chrome and capping the set.
func (s *DetailStage) collectImages(images []string, content, pageURL string) []string {
	add := func(src string) {
		if len(images) >= maxProductImages || !keepImage(src) {
			return
		}
		resolved := extraction.ResolveURL(src, pageURL)
		for _, existing := range images {
			if existing == resolved {
				return
			}
		}
		images = append(images, resolved)
	}
	for _, p := range productImageRules {
		for _, m := range p.FindAllStringSubmatch(content, -1) {
			add(m[1])
		}
	}
	if len(images) == 0 {
		for _, m := range anyImagePattern.FindAllStringSubmatch(content, -1) {
			add(m[1])
		}
	}
	return images
}

// keepImage rejects icon/logo/banner/tracking-pixel and SVG sources.
func keepImage(src string) bool {
	if strings.TrimSpace(src) == "" {
		return false
	}
	lower := strings.ToLower(src)
	for _, excl := range imageExclusions {
		if strings.Contains(lower, excl) {
			return false
		}
	}
	return true
}
