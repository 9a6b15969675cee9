package importer

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Platform names a storefront/CMS family recognized by the detector.
type Platform string

// Known platforms, in detection priority order.
const (
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformMagento     Platform = "magento"
	PlatformBigCommerce Platform = "bigcommerce"
	PlatformPrestaShop  Platform = "prestashop"
	PlatformWebflow     Platform = "webflow"
	PlatformSquarespace Platform = "squarespace"
	PlatformWix         Platform = "wix"
)

// BlueprintPreset is the compiled-in crawl configuration for one platform.
type BlueprintPreset struct {
	Platform        Platform
	PriorityPaths   []string
	ExcludePaths    []string
	FeedPath        string
	ExtractionRules []ExtractionRule
}

// platformSignal pairs a match predicate with its preset. Detection evaluates
// the list in order and the first match wins; sites routinely satisfy more
// than one heuristic. match receives the lowercased response body.
type platformSignal struct {
	preset BlueprintPreset
	match  func(body string, headers http.Header) bool
}

var platformSignals = []platformSignal{
	{
		preset: BlueprintPreset{
			Platform:      PlatformShopify,
			PriorityPaths: []string{"/products/", "/collections/"},
			ExcludePaths:  []string{"/cart", "/checkout", "/account", "/policies/"},
			FeedPath:      "/products.json",
			ExtractionRules: []ExtractionRule{
				{Field: "title", Selector: "h1.product__title, h1.product-single__title, h1"},
				{Field: "price", Selector: ".price__regular .price-item, .product__price, [itemprop=price]"},
				{Field: "image", Selector: ".product__media img, .product-single__photo img", Attribute: "src"},
			},
		},
		match: func(body string, headers http.Header) bool {
			return headers.Get("X-Shopid") != "" ||
				strings.Contains(body, "cdn.shopify.com") ||
				strings.Contains(body, "shopify.theme")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:      PlatformWooCommerce,
			PriorityPaths: []string{"/product/", "/shop/"},
			ExcludePaths:  []string{"/cart", "/checkout", "/my-account", "/wp-admin", "/wp-login"},
			ExtractionRules: []ExtractionRule{
				{Field: "title", Selector: "h1.product_title, h1.entry-title"},
				{Field: "price", Selector: "p.price .woocommerce-Price-amount, .price ins .amount, .price .amount"},
				{Field: "image", Selector: ".woocommerce-product-gallery__image img", Attribute: "src"},
			},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "woocommerce") ||
				strings.Contains(body, "wp-content/plugins/woocommerce")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:      PlatformMagento,
			PriorityPaths: []string{".html"},
			ExcludePaths:  []string{"/checkout", "/customer/", "/wishlist", "/catalogsearch"},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "magento_") ||
				strings.Contains(body, "mage-cache-storage") ||
				strings.Contains(body, "/static/version")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:      PlatformBigCommerce,
			PriorityPaths: []string{"/products/"},
			ExcludePaths:  []string{"/cart.php", "/checkout", "/login.php", "/account.php"},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "cdn11.bigcommerce.com") ||
				strings.Contains(body, "stencil-utils")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:      PlatformPrestaShop,
			PriorityPaths: []string{"/product/"},
			ExcludePaths:  []string{"/cart", "/order", "/my-account", "/module/"},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "prestashop") ||
				strings.Contains(body, "/themes/classic/assets")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:     PlatformWebflow,
			ExcludePaths: []string{"/checkout", "/order-confirmation"},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "data-wf-page") ||
				strings.Contains(body, "data-wf-site")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:     PlatformSquarespace,
			ExcludePaths: []string{"/cart", "/checkout", "/commerce/"},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "squarespace.com") ||
				strings.Contains(body, "static1.squarespace.com")
		},
	},
	{
		preset: BlueprintPreset{
			Platform:     PlatformWix,
			ExcludePaths: []string{"/cart-page", "/checkout"},
		},
		match: func(body string, _ http.Header) bool {
			return strings.Contains(body, "static.wixstatic.com") ||
				strings.Contains(body, "wix.com")
		},
	},
}

// BlueprintDetector classifies a site's platform from a single root fetch.
type BlueprintDetector struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewBlueprintDetector constructs a detector using the provided fetcher.
func NewBlueprintDetector(fetcher Fetcher, logger *zap.Logger) *BlueprintDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlueprintDetector{fetcher: fetcher, logger: logger}
}

// Detect fetches the root URL once and evaluates the platform signals in
// priority order. A fetch failure degrades to undetected; detection never
// aborts a crawl.
func (d *BlueprintDetector) Detect(ctx context.Context, rootURL string) (BlueprintPreset, bool) {
	page, err := d.fetcher.Fetch(ctx, rootURL)
	if err != nil {
		d.logger.Warn("blueprint probe failed", zap.String("url", rootURL), zap.Error(err))
		return BlueprintPreset{}, false
	}
	body := strings.ToLower(string(page.Body))
	for _, signal := range platformSignals {
		if signal.match(body, page.Headers) {
			d.logger.Info("platform detected",
				zap.String("url", rootURL),
				zap.String("platform", string(signal.preset.Platform)),
			)
			return signal.preset, true
		}
	}
	return BlueprintPreset{}, false
}
