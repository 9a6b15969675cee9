// Package importer defines core types shared across the import pipeline.
package importer

import (
	"net/http"
	"time"
)

// SiteStatus represents the lifecycle state of a site import job.
type SiteStatus string

// Site status values persisted in the site store. Only the pipeline writes
// Crawling/Completed/Failed; Pending is set by the job creator and Cancelled
// by an external actor.
const (
	SiteStatusPending   SiteStatus = "pending"
	SiteStatusCrawling  SiteStatus = "crawling"
	SiteStatusCompleted SiteStatus = "completed"
	SiteStatusFailed    SiteStatus = "failed"
	SiteStatusCancelled SiteStatus = "cancelled"
)

// IsTerminal reports whether the status ends a run.
func (s SiteStatus) IsTerminal() bool {
	switch s {
	case SiteStatusCompleted, SiteStatusFailed, SiteStatusCancelled:
		return true
	default:
		return false
	}
}

// ItemType distinguishes staged record kinds.
type ItemType string

// Staged item types.
const (
	ItemTypePage    ItemType = "page"
	ItemTypeProduct ItemType = "product"
)

// FeedSourcedHash is the sentinel structural hash stored for items imported
// through the feed fast path, where no HTML was fetched to fingerprint.
const FeedSourcedHash = "feed-sourced"

// ExtractionRule maps a metadata field to a CSS selector, optionally reading
// an attribute instead of text content.
type ExtractionRule struct {
	Field     string `json:"field" mapstructure:"field"`
	Selector  string `json:"selector" mapstructure:"selector"`
	Attribute string `json:"attribute,omitempty" mapstructure:"attribute"`
}

// CrawlConfig is the merged crawl configuration for one site: explicit
// operator settings layered over a detected blueprint preset.
type CrawlConfig struct {
	MaxPages        int              `json:"max_pages" mapstructure:"max_pages"`
	PriorityPaths   []string         `json:"priority_paths" mapstructure:"priority_paths"`
	ExcludePaths    []string         `json:"exclude_paths" mapstructure:"exclude_paths"`
	FeedURL         string           `json:"feed_url,omitempty" mapstructure:"feed_url"`
	ExtractionRules []ExtractionRule `json:"extraction_rules,omitempty" mapstructure:"extraction_rules"`
	AutoDetect      bool             `json:"auto_detect" mapstructure:"auto_detect"`
}

// ImportedSite is the persisted record for one crawl job.
type ImportedSite struct {
	ID        string      `json:"id"`
	RootURL   string      `json:"root_url"`
	Status    SiteStatus  `json:"status"`
	PageCount int         `json:"page_count"`
	Config    CrawlConfig `json:"config"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ProductVariant is one purchasable variant of a staged product. Position is
// the feed order and must survive round trips unsorted.
type ProductVariant struct {
	Title          string   `json:"title"`
	SKU            string   `json:"sku,omitempty"`
	Price          string   `json:"price,omitempty"`
	CompareAtPrice string   `json:"compare_at_price,omitempty"`
	Options        []string `json:"options,omitempty"`
	Inventory      int      `json:"inventory"`
	Image          string   `json:"image,omitempty"`
	Position       int      `json:"position"`
}

// Metadata carries the extractor-defined fields for a staged item. Fields
// holds anything rule-driven extraction produced beyond the typed members.
type Metadata struct {
	Title      string            `json:"title,omitempty"`
	Type       string            `json:"type,omitempty"`
	Canonical  string            `json:"canonical,omitempty"`
	Price      string            `json:"price,omitempty"`
	SKU        string            `json:"sku,omitempty"`
	Images     []string          `json:"images,omitempty"`
	Variants   []ProductVariant  `json:"variants,omitempty"`
	ArchiveURI string            `json:"archive_uri,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

// StagedItem is one fetched page or feed product awaiting the downstream
// transform. URL is the canonical URL once resolved; (SiteID, URL) is unique.
type StagedItem struct {
	SiteID         string    `json:"site_id"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Type           ItemType  `json:"type"`
	Body           string    `json:"body,omitempty"`
	StructuralHash string    `json:"structural_hash,omitempty"`
	Metadata       Metadata  `json:"metadata"`
	Status         string    `json:"status"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// SkipReason classifies why a frontier URL produced no staged item.
type SkipReason string

// Skip reasons surfaced through PageResult and skip progress events.
// SkipAlreadyStaged is raised by the crawl loop itself when a canonical
// duplicate converges onto an existing key.
const (
	SkipFetchError    SkipReason = "fetch_error"
	SkipBadStatus     SkipReason = "bad_status"
	SkipNotHTML       SkipReason = "not_html"
	SkipAlreadyStaged SkipReason = "already_staged"
	SkipStoreError    SkipReason = "store_error"
)

// PageResult is the typed outcome of one frontier iteration. Per-page
// failures are skips, never job failures.
type PageResult struct {
	Item *StagedItem
	Skip SkipReason
	Err  error
}

// Staged reports whether the iteration persisted an item.
func (r PageResult) Staged() bool {
	return r.Item != nil
}

// Page is the raw response handed back by a Fetcher.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
