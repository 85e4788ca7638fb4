package stages

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
)

var titleSuffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[-|]\s*(Home|Official Website|Official Site|Welcome).*$`),
	regexp.MustCompile(`(?i)\s*[-|]\s*.*?(homepage|official).*$`),
}

// Company name sources in precedence order; each match overwrites the
// previous one, so the last matching source wins.
var companyNameRules = []textRule{
	{re: regexp.MustCompile(`(?is)<meta\s+(?:property|name)="(?:og:site_name|twitter:site)"[^>]*content="([^"]*)"[^>]*>`), policy: overwriteAlways},
}

// Description sources: meta description seeds the field, the first matching
// about section and og:description replace it only when longer.
var metaDescriptionRule = textRule{
	re:     regexp.MustCompile(`(?is)<meta\s+name="description"\s+content="([^"]*)"`),
	policy: overwriteAlways,
}

var aboutSectionRules = []textRule{
	{re: regexp.MustCompile(`(?is)<(?:div|section)[^>]*\b(?:id|class)="[^"]*\babout\b[^"]*"[^>]*>([\s\S]*?)</(?:div|section)>`), policy: overwriteIfLonger, clean: true},
	{re: regexp.MustCompile(`(?is)<h\d[^>]*>\s*About\s+(?:Us|Company)\s*</h\d>([\s\S]*?)(?:<h\d|</div|</section)`), policy: overwriteIfLonger, clean: true},
}

var ogDescriptionRule = textRule{
	re:     regexp.MustCompile(`(?is)<meta\s+property="og:description"\s+content="([^"]*)"`),
	policy: overwriteIfLonger,
}

// industryRule maps a keyword matcher to a company type. Table order breaks
// ties: the first matching row wins.
type industryRule struct {
	re          *regexp.Regexp
	companyType string
}

var industryRules = []industryRule{
	{regexp.MustCompile(`(?i)\b(?:tech|software|application|app|digital|IT|information technology)\b`), "Technology"},
	{regexp.MustCompile(`(?i)\b(?:manufacturing|factory|production|industrial)\b`), "Manufacturing"},
	{regexp.MustCompile(`(?i)\b(?:retail|shop|store|e-commerce|marketplace)\b`), "Retail"},
	{regexp.MustCompile(`(?i)\b(?:healthcare|medical|hospital|clinic|pharma|health)\b`), "Healthcare"},
	{regexp.MustCompile(`(?i)\b(?:financial|bank|insurance|investment|finance)\b`), "Financial Services"},
	{regexp.MustCompile(`(?i)\b(?:food|restaurant|catering|bakery|café)\b`), "Food & Beverage"},
	{regexp.MustCompile(`(?i)\b(?:tofu|vegan|plant-based|vegetarian|organic food)\b`), "Plant-based Foods"},
}

// Logo locators in priority order, first match wins.
var logoRules = []textRule{
	{re: regexp.MustCompile(`(?is)<img[^>]*\b(?:id|class)="[^"]*\b(?:logo|brand|company-logo)\b[^"]*"[^>]*src="([^"]*)"`), policy: overwriteIfEmpty},
	{re: regexp.MustCompile(`(?is)<img[^>]*\balt="[^"]*\b(?:logo|brand|company-logo)\b[^"]*"[^>]*src="([^"]*)"`), policy: overwriteIfEmpty},
	{re: regexp.MustCompile(`(?is)<img[^>]*\bsrc="([^"]*logo[^"]*)"`), policy: overwriteIfEmpty},
}

// CompanyStage derives company identity fields from page content.
type CompanyStage struct {
	oplog  extraction.OperationLogger
	logger *zap.Logger
}

// NewCompanyStage constructs a CompanyStage.
func NewCompanyStage(oplog extraction.OperationLogger, logger *zap.Logger) *CompanyStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompanyStage{oplog: oplog, logger: logger}
}

// Extract fills name, description, type and logo on the record. The name
// sources apply in order title, structured data, site-name meta, each
// unconditionally overwriting the previous; description and logo follow
// their own merge policies.
func (s *CompanyStage) Extract(content, url string, rec *extraction.CompanyRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.oplog.LogError(url, "", "CompanyExtractionError",
				fmt.Sprintf("error extracting company info: %v", r), "")
		}
	}()

	if title := pageTitle(content); title != "" {
		for _, p := range titleSuffixPatterns {
			title = p.ReplaceAllString(title, "")
		}
		rec.Name = applyPolicy(rec.Name, title, overwriteAlways)
	}
	if name := structuredString(structuredData(content), "organization", "name"); name != "" {
		rec.Name = name
	}
	for _, rule := range companyNameRules {
		rec.Name = rule.apply(rec.Name, content)
	}

	rec.Description = metaDescriptionRule.apply(rec.Description, content)
	for _, rule := range aboutSectionRules {
		if rule.re.MatchString(content) {
			rec.Description = rule.apply(rec.Description, content)
			break
		}
	}
	rec.Description = ogDescriptionRule.apply(rec.Description, content)

	textToAnalyze := rec.Description
	if textToAnalyze == "" {
		textToAnalyze = content
	}
	for _, rule := range industryRules {
		if rule.re.MatchString(textToAnalyze) {
			rec.Type = rule.companyType
			break
		}
	}

	for _, rule := range logoRules {
		rec.Logo = rule.apply(rec.Logo, content)
	}
	if rec.Logo != "" {
		rec.Logo = extraction.ResolveURL(rec.Logo, url)
	}
}
