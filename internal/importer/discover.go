package importer

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// staticExtensions are path suffixes that never yield crawlable HTML.
var staticExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".svg": {},
	".ico": {}, ".css": {}, ".js": {}, ".mjs": {}, ".json": {}, ".xml": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".rar": {}, ".7z": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".webm": {}, ".wav": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {},
}

// DiscoverLinks walks every anchor in doc and pushes crawlable same-site URLs
// onto the frontier. currentURL anchors relative links; rootHost bounds the
// crawl to one site.
func DiscoverLinks(doc *goquery.Document, currentURL *url.URL, rootHost string, frontier *Frontier, cfg CrawlConfig) {
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		EnqueueCandidate(currentURL.ResolveReference(ref), rootHost, frontier, cfg)
	})
}

// EnqueueCandidate applies the full admission gauntlet to an absolute URL:
// http(s) scheme, same host as the root, no static-file extension, platform
// rewrite, exclude patterns, then normalization and the visited/queued check.
// Priority-path matches go to the front of the queue, the rest to the back.
// Sitemap seeds pass through here too, so they obey the same filters as
// discovered links.
func EnqueueCandidate(abs *url.URL, rootHost string, frontier *Frontier, cfg CrawlConfig) bool {
	if abs == nil {
		return false
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return false
	}
	if !strings.EqualFold(abs.Hostname(), rootHost) {
		return false
	}
	if hasStaticExtension(abs.Path) {
		return false
	}

	// Rewrite before the exclude and visited checks so the nested and flat
	// forms of the same product URL dedupe to one entry.
	rewriteNestedProductPath(abs)

	if matchesAny(abs.Path, cfg.ExcludePaths) || matchesAny(abs.RawQuery, cfg.ExcludePaths) {
		return false
	}
	normalized, err := NormalizeURL(abs.String())
	if err != nil {
		return false
	}
	if matchesAny(abs.Path, cfg.PriorityPaths) {
		return frontier.PushFront(normalized)
	}
	return frontier.PushBack(normalized)
}

// rewriteNestedProductPath flattens Shopify-style collection-scoped product
// URLs (/collections/<name>/products/<handle>) to their canonical
// /products/<handle> form in place.
func rewriteNestedProductPath(u *url.URL) {
	if !strings.HasPrefix(u.Path, "/collections/") {
		return
	}
	idx := strings.Index(u.Path, "/products/")
	if idx < 0 {
		return
	}
	u.Path = u.Path[idx:]
}

func hasStaticExtension(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	_, ok := staticExtensions[ext]
	return ok
}

func matchesAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
