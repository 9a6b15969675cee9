package importer

import (
	"context"
	"encoding/xml"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// wellKnownSitemaps are the paths probed relative to the root: the generic
// sitemap plus the per-type names common storefront platforms generate.
var wellKnownSitemaps = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap_products_1.xml",
	"/sitemap_pages_1.xml",
	"/sitemap_collections_1.xml",
	"/sitemap_blogs_1.xml",
	"/wp-sitemap.xml",
	"/page-sitemap.xml",
	"/product-sitemap.xml",
}

type sitemapDoc struct {
	XMLName  xml.Name       `xml:"urlset"`
	Entries  []sitemapEntry `xml:"url"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapIndexDoc struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// SitemapSeeder discovers frontier candidates from well-known sitemap paths.
type SitemapSeeder struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewSitemapSeeder constructs a seeder using the provided fetcher.
func NewSitemapSeeder(fetcher Fetcher, logger *zap.Logger) *SitemapSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SitemapSeeder{fetcher: fetcher, logger: logger}
}

// Seed probes the well-known sitemap paths under rootURL and returns the
// <url><loc> entries found. Nested <sitemap><loc> index entries are counted
// but deliberately not traversed; one level is enough for seeding. Every
// individual fetch or parse failure is swallowed, so the worst case is an
// empty slice.
func (s *SitemapSeeder) Seed(ctx context.Context, rootURL string) []string {
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil
	}

	var seeds []string
	for _, sitemapPath := range wellKnownSitemaps {
		ref := &url.URL{Path: sitemapPath}
		target := root.ResolveReference(ref).String()

		page, err := s.fetcher.Fetch(ctx, target)
		if err != nil || page.StatusCode != http.StatusOK {
			continue
		}

		entries, nested := parseSitemap(page.Body)
		if nested > 0 {
			s.logger.Debug("sitemap index entries not traversed",
				zap.String("sitemap", target),
				zap.Int("nested", nested),
			)
		}
		seeds = append(seeds, entries...)
	}
	return seeds
}

func parseSitemap(body []byte) (entries []string, nested int) {
	var urlset sitemapDoc
	if err := xml.Unmarshal(body, &urlset); err == nil && len(urlset.Entries)+len(urlset.Sitemaps) > 0 {
		for _, e := range urlset.Entries {
			if e.Loc != "" {
				entries = append(entries, e.Loc)
			}
		}
		return entries, len(urlset.Sitemaps)
	}

	var index sitemapIndexDoc
	if err := xml.Unmarshal(body, &index); err == nil {
		return nil, len(index.Sitemaps)
	}
	return nil, 0
}
