package importer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func xmlPage(url, body string) Page {
	return Page{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"application/xml"}},
		Body:       []byte(body),
	}
}

func TestSeedCollectsURLEntries(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://shop.test/sitemap.xml": xmlPage("https://shop.test/sitemap.xml", `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://shop.test/products/hat</loc></url>
  <url><loc>https://shop.test/about</loc></url>
</urlset>`),
	}}

	seeds := NewSitemapSeeder(fetcher, nil).Seed(context.Background(), "https://shop.test")
	require.Equal(t, []string{"https://shop.test/products/hat", "https://shop.test/about"}, seeds)
}

func TestSeedProbesMultipleWellKnownPaths(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://shop.test/sitemap_products_1.xml": xmlPage("", `<urlset><url><loc>https://shop.test/products/a</loc></url></urlset>`),
		"https://shop.test/sitemap_pages_1.xml":    xmlPage("", `<urlset><url><loc>https://shop.test/faq</loc></url></urlset>`),
	}}

	seeds := NewSitemapSeeder(fetcher, nil).Seed(context.Background(), "https://shop.test")
	require.ElementsMatch(t, []string{"https://shop.test/products/a", "https://shop.test/faq"}, seeds)
}

func TestSeedDoesNotTraverseIndex(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://shop.test/sitemap_index.xml": xmlPage("", `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://shop.test/deep_sitemap_1.xml</loc></sitemap>
</sitemapindex>`),
	}}

	seeds := NewSitemapSeeder(fetcher, nil).Seed(context.Background(), "https://shop.test")
	require.Empty(t, seeds)
}

func TestSeedSwallowsFailures(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://shop.test/sitemap.xml": xmlPage("", `this is not xml at all <<<`),
	}}
	seeds := NewSitemapSeeder(fetcher, nil).Seed(context.Background(), "https://shop.test")
	require.Empty(t, seeds)

	seeds = NewSitemapSeeder(&stubFetcher{pages: map[string]Page{}}, nil).Seed(context.Background(), "https://shop.test")
	require.Empty(t, seeds)
}
