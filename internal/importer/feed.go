package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// productFeed mirrors the Shopify-style /products.json payload. Other
// platforms exposing the same shape work unchanged.
type productFeed struct {
	Products []feedProduct `json:"products"`
}

type feedProduct struct {
	Title    string        `json:"title"`
	Handle   string        `json:"handle"`
	Variants []feedVariant `json:"variants"`
	Images   []feedImage   `json:"images"`
}

type feedVariant struct {
	Title          string     `json:"title"`
	SKU            string     `json:"sku"`
	Price          string     `json:"price"`
	CompareAtPrice string     `json:"compare_at_price"`
	Option1        string     `json:"option1"`
	Option2        string     `json:"option2"`
	Option3        string     `json:"option3"`
	InventoryQty   int        `json:"inventory_quantity"`
	FeaturedImage  *feedImage `json:"featured_image"`
	Position       int        `json:"position"`
}

type feedImage struct {
	Src string `json:"src"`
}

// FeedImporter bulk-loads product records from a structured feed, bypassing
// per-page crawling.
type FeedImporter struct {
	fetcher Fetcher
	clock   Clock
	logger  *zap.Logger
}

// NewFeedImporter constructs a FeedImporter.
func NewFeedImporter(fetcher Fetcher, clock Clock, logger *zap.Logger) *FeedImporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedImporter{fetcher: fetcher, clock: clock, logger: logger}
}

// Import fetches feedURL and upserts one product StagedItem per entry, keyed
// by the product URL derived from the entry handle against the feed origin.
// It returns the number of products imported by this call; zero with a nil
// error means the response is not a usable product feed and the caller falls
// back to the traditional crawl. Malformed individual entries are skipped,
// never fatal. On success the site's page_count is set to the imported count
// and the imported URLs are pre-marked visited on the frontier.
func (f *FeedImporter) Import(
	ctx context.Context,
	sites SiteStore,
	items ItemStore,
	siteID string,
	feedURL string,
	frontier *Frontier,
) (int, error) {
	page, err := f.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		f.logger.Warn("feed fetch failed", zap.String("feed", feedURL), zap.Error(err))
		return 0, nil
	}
	if page.StatusCode != http.StatusOK {
		return 0, nil
	}

	var feed productFeed
	if err := json.Unmarshal(page.Body, &feed); err != nil || len(feed.Products) == 0 {
		return 0, nil
	}

	origin, err := url.Parse(feedURL)
	if err != nil {
		return 0, nil
	}

	imported := 0
	for _, product := range feed.Products {
		item, err := f.buildItem(siteID, origin, product)
		if err != nil {
			f.logger.Warn("skipping malformed feed entry",
				zap.String("site_id", siteID),
				zap.String("product", product.Title),
				zap.Error(err),
			)
			continue
		}
		if err := items.UpsertItem(ctx, item); err != nil {
			return 0, fmt.Errorf("upsert feed item: %w", err)
		}
		if normalized, err := NormalizeURL(item.URL); err == nil {
			frontier.MarkVisited(normalized)
		}
		imported++
	}
	if imported == 0 {
		return 0, nil
	}

	if err := sites.UpdatePageCount(ctx, siteID, imported); err != nil {
		return 0, fmt.Errorf("update page count: %w", err)
	}
	f.logger.Info("feed import completed",
		zap.String("site_id", siteID),
		zap.Int("products", imported),
	)
	return imported, nil
}

func (f *FeedImporter) buildItem(siteID string, origin *url.URL, product feedProduct) (StagedItem, error) {
	handle := strings.TrimSpace(product.Handle)
	if handle == "" {
		return StagedItem{}, fmt.Errorf("feed entry has no handle")
	}
	productURL := origin.ResolveReference(&url.URL{Path: "/products/" + handle}).String()

	meta := Metadata{
		Title: product.Title,
		Type:  string(ItemTypeProduct),
	}
	for _, img := range product.Images {
		if img.Src != "" {
			meta.Images = append(meta.Images, img.Src)
		}
	}
	for _, v := range product.Variants {
		variant := ProductVariant{
			Title:          v.Title,
			SKU:            v.SKU,
			Price:          v.Price,
			CompareAtPrice: v.CompareAtPrice,
			Inventory:      v.InventoryQty,
			// Feed order is authoritative; positions are never re-sorted.
			Position: v.Position,
		}
		for _, opt := range []string{v.Option1, v.Option2, v.Option3} {
			if opt != "" {
				variant.Options = append(variant.Options, opt)
			}
		}
		if v.FeaturedImage != nil {
			variant.Image = v.FeaturedImage.Src
		}
		meta.Variants = append(meta.Variants, variant)
	}
	if len(meta.Variants) > 0 {
		meta.Price = meta.Variants[0].Price
		meta.SKU = meta.Variants[0].SKU
	}

	return StagedItem{
		SiteID:         siteID,
		URL:            productURL,
		Title:          product.Title,
		Type:           ItemTypeProduct,
		StructuralHash: FeedSourcedHash,
		Metadata:       meta,
		Status:         "completed",
		FetchedAt:      f.clock.Now(),
	}, nil
}
