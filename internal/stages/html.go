// Package stages implements the ordered heuristic extractors that build a
// CompanyRecord from fetched page content: company identity, contact info,
// and product discovery/detail. Stage errors never fail the pipeline; a
// failed heuristic contributes nothing for its fields.
package stages

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	jsonLDPattern   = regexp.MustCompile(`(?is)<script[^>]*type="application/ld\+json"[^>]*>([\s\S]*?)</script>`)
	tagPattern      = regexp.MustCompile(`<[^>]+>`)
	spacePattern    = regexp.MustCompile(`\s+`)
	anchorPattern   = regexp.MustCompile(`(?is)<a\s+[^>]*href="([^"]*)"[^>]*>([\s\S]*?)</a>`)
	anchorTextOnly  = regexp.MustCompile(`(?is)<a[^>]*>([\s\S]*?)</a>`)
	titlePattern    = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	titleSeparators = regexp.MustCompile(`\s*[|—-]\s*`)
)

// cleanHTML reduces an HTML fragment to normalized plain text. It parses
// with goquery and drops script/style subtrees, falling back to a tag strip
// when the fragment will not parse.
func cleanHTML(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalizeSpace(tagPattern.ReplaceAllString(html, " "))
	}
	doc.Find("script, style").Remove()
	return normalizeSpace(doc.Text())
}

func normalizeSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// structuredData returns the first JSON-LD block in the page, or nil.
func structuredData(content string) map[string]any {
	m := jsonLDPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(m[1]), &data); err != nil {
		return nil
	}
	return data
}

// structuredString digs a string value out of nested JSON-LD maps.
func structuredString(data map[string]any, path ...string) string {
	cur := any(data)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}

// overwritePolicy decides whether a matched value replaces the current one.
type overwritePolicy int

const (
	// overwriteAlways: later sources win unconditionally.
	overwriteAlways overwritePolicy = iota
	// overwriteIfLonger: candidate replaces only a shorter current value.
	overwriteIfLonger
	// overwriteIfEmpty: first match wins; later matches are ignored.
	overwriteIfEmpty
)

// applyPolicy merges candidate into current under the given policy.
func applyPolicy(current, candidate string, policy overwritePolicy) string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return current
	}
	switch policy {
	case overwriteAlways:
		return candidate
	case overwriteIfLonger:
		if len(candidate) > len(current) {
			return candidate
		}
	case overwriteIfEmpty:
		if current == "" {
			return candidate
		}
	}
	return current
}

// textRule is one data-driven extraction rule: an ordered matcher plus the
// merge policy for the field it feeds.
type textRule struct {
	re     *regexp.Regexp
	policy overwritePolicy
	clean  bool
}

// apply runs the rule against content and merges the first capture group
// into current.
func (r textRule) apply(current, content string) string {
	m := r.re.FindStringSubmatch(content)
	if m == nil {
		return current
	}
	value := m[1]
	if r.clean {
		value = cleanHTML(value)
	}
	return applyPolicy(current, value, r.policy)
}

// pageTitle returns the trimmed <title> contents, or "".
func pageTitle(content string) string {
	m := titlePattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// titleFirstSegment returns the part of a page title before the first
// separator, used as a product-name fallback.
func titleFirstSegment(content string) string {
	title := pageTitle(content)
	if title == "" {
		return ""
	}
	parts := titleSeparators.Split(title, -1)
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}
