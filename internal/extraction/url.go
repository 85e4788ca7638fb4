package extraction

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`^(?i)(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)

// EnsureScheme prepends https:// to scheme-less URLs so that typical
// domain-style inputs validate and parse.
func EnsureScheme(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// ValidateURL checks the URL shape used for extraction targets: an optional
// http(s) scheme, a dotted host, and a plain path.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{URL: raw, Reason: "empty"}
	}
	if !urlPattern.MatchString(raw) {
		return &ValidationError{URL: raw, Reason: "malformed"}
	}
	return nil
}

// ResolveURL resolves href against base, returning href unchanged when
// either side fails to parse.
func ResolveURL(href, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// SameDomain reports whether two URLs share a host, ignoring a www. prefix.
func SameDomain(url1, url2 string) bool {
	host1, err := hostOf(url1)
	if err != nil {
		return false
	}
	host2, err := hostOf(url2)
	if err != nil {
		return false
	}
	return host1 == host2
}

func hostOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www."), nil
}

// NormalizeURL standardizes a URL for visited-set deduplication.
// It lowercases the scheme and host, strips default ports and fragments,
// and sorts query parameters. Unparseable URLs are returned unchanged.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	u.RawQuery = q.Encode()

	return u.String()
}
