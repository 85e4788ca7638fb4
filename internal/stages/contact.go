package stages

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/strykerlabs/webstryker/internal/extraction"
	"github.com/strykerlabs/webstryker/internal/fetch"
)

var contactLinkRules = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<a[^>]*\bhref="([^"]*contact[^"]*)"`),
	regexp.MustCompile(`(?is)<a[^>]*\bhref="([^"]*about-us[^"]*)"`),
	regexp.MustCompile(`(?is)<a[^>]*\bhref="([^"]*get-in-touch[^"]*)"`),
}

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// placeholderEmails are documentation addresses that show up in markup but
// never belong to the company.
var placeholderEmails = map[string]struct{}{
	"example@example.com": {},
	"user@example.com":    {},
	"name@example.com":    {},
}

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+\d{1,3}[\s.-]?\(?\d{1,4}\)?[\s.-]?\d{1,4}[\s.-]?\d{1,9}`), // international
	regexp.MustCompile(`\(\d{3}\)[\s.-]?\d{3}[\s.-]?\d{4}`),                         // US (xxx) xxx-xxxx
	regexp.MustCompile(`\b\d{3}[\s.-]?\d{3}[\s.-]?\d{4}\b`),                         // xxx-xxx-xxxx
	regexp.MustCompile(`\b\d{2,3}[\s.-]?\d{2,4}[\s.-]?\d{4,5}\b`),                   // European
}

var contactSectionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<(?:div|section)[^>]*\b(?:id|class)="[^"]*\b(?:contact|address|location)[^"]*"[^>]*>([\s\S]*?)</(?:div|section)>`),
	regexp.MustCompile(`(?is)<h\d[^>]*>\s*(?:Contact|Address|Location|Find Us)\s*</h\d>([\s\S]*?)(?:<h\d|</div|</section)`),
}

var (
	hasDigit      = regexp.MustCompile(`\d+`)
	streetKeyword = regexp.MustCompile(`(?i)\b(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|way|place|pl|square|sq|county|city|town|village|state|province|country)\b`)
)

var addressFallbackPatterns = []*regexp.Regexp{
	// Street, City, State ZIP
	regexp.MustCompile(`(?i)\d+\s+[A-Za-z0-9\s.,]+\s+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr|Lane|Ln|Court|Ct|Way|Place|Pl|Square|Sq)[,.\s]*(?:[A-Za-z\s]+)[,.\s]*(?:[A-Z]{2}|\b[A-Za-z]+\b)[,.\s]*(?:\d{5}(?:-\d{4})?)?`),
	// European
	regexp.MustCompile(`(?i)\d+\s+[A-Za-z0-9\s.,]+\s+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd)[,.\s]*(?:[A-Za-z\s]+)[,.\s]*(?:[A-Z]{1,2}\d{1,2}\s+\d[A-Z]{2}|\d{4,5})`),
	// P.O. Box
	regexp.MustCompile(`(?i)P\.?O\.?\s+Box\s+\d+[,.\s]*(?:[A-Za-z\s]+)[,.\s]*(?:[A-Z]{2}|\b[A-Za-z]+\b)[,.\s]*(?:\d{5}(?:-\d{4})?)?`),
}

// ContactStage extracts emails, phone numbers and postal addresses from the
// page, optionally combined with one fetched contact-like page.
type ContactStage struct {
	getter fetch.PageGetter
	oplog  extraction.OperationLogger
	logger *zap.Logger
}

// NewContactStage constructs a ContactStage. getter may be nil, in which
// case only the main page content is analyzed.
func NewContactStage(getter fetch.PageGetter, oplog extraction.OperationLogger, logger *zap.Logger) *ContactStage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactStage{getter: getter, oplog: oplog, logger: logger}
}

// Extract fills the email/phone/address sets on the record. All three are
// deduplicated; placeholder emails are excluded.
func (s *ContactStage) Extract(ctx context.Context, content, url string, rec *extraction.CompanyRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.oplog.LogError(url, "", "ContactExtractionError",
				fmt.Sprintf("error extracting contact info: %v", r), "")
		}
	}()

	combined := content + s.fetchContactPage(ctx, content, url)

	var emails []string
	for _, email := range emailPattern.FindAllString(combined, -1) {
		if _, placeholder := placeholderEmails[strings.ToLower(email)]; placeholder {
			continue
		}
		emails = append(emails, email)
	}
	rec.Emails = dedupe(emails)

	var phones []string
	for _, p := range phonePatterns {
		phones = append(phones, p.FindAllString(combined, -1)...)
	}
	rec.Phones = dedupe(phones)

	addresses := s.sectionAddresses(combined)
	if len(addresses) == 0 {
		for _, p := range addressFallbackPatterns {
			for _, addr := range p.FindAllString(combined, -1) {
				addresses = append(addresses, strings.TrimSpace(addr))
			}
		}
	}
	rec.Addresses = dedupe(addresses)
}

// fetchContactPage follows the first contact-like link on the page and
// returns its body, or "" on any failure.
func (s *ContactStage) fetchContactPage(ctx context.Context, content, baseURL string) string {
	if s.getter == nil {
		return ""
	}
	var contactURL string
	for _, p := range contactLinkRules {
		if m := p.FindStringSubmatch(content); m != nil {
			contactURL = extraction.ResolveURL(m[1], baseURL)
			break
		}
	}
	if contactURL == "" || contactURL == baseURL {
		return ""
	}
	status, body, err := s.getter.Get(ctx, contactURL)
	if err != nil || status != http.StatusOK {
		s.oplog.LogError(baseURL, "", "ContactPageFetchError",
			fmt.Sprintf("error fetching contact page %s: %v", contactURL, err), "")
		return ""
	}
	return body
}

// sectionAddresses looks for a contact/address section and pulls
// address-shaped elements out of it: each candidate must contain a digit
// and a street or locality keyword.
func (s *ContactStage) sectionAddresses(combined string) []string {
	var section string
	for _, p := range contactSectionRules {
		if m := p.FindStringSubmatch(combined); m != nil {
			section = m[1]
			break
		}
	}
	if section == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(section))
	if err != nil {
		return nil
	}
	var addresses []string
	doc.Find("p, div.address, span.address, div.location, span.location").Each(func(_ int, sel *goquery.Selection) {
		text := normalizeSpace(sel.Text())
		if text == "" {
			return
		}
		if hasDigit.MatchString(text) && streetKeyword.MatchString(text) {
			addresses = append(addresses, text)
		}
	})
	return addresses
}

// dedupe removes duplicates preserving first-seen order. A nil result means
// nothing was found.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
