package importer

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are query parameters stripped during normalization: analytics
// tags, ad click ids, and storefront view/sort/pagination params that produce
// duplicate representations of the same page.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"mc_cid":       {},
	"mc_eid":       {},
	"ref":          {},
	"variant":      {},
	"sort_by":      {},
	"orderby":      {},
	"page":         {},
	"p":            {},
	"view":         {},
	"grid_list":    {},
}

// NormalizeURL standardizes a URL for visited-set and dedup purposes. It
// lowercases the scheme and host, removes default ports, drops fragments and
// tracking/view query parameters, and trims a single trailing slash off
// non-root paths. It is idempotent. An error means the caller should skip the
// URL, not fail the crawl.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if _, drop := trackingParams[strings.ToLower(param)]; drop {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	// A bare host and the explicit root slash are the same page.
	if u.Path == "" {
		u.Path = "/"
	}
	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}
