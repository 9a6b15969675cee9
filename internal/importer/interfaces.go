package importer

import (
	"context"
	"errors"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrSiteNotFound signals that a site id has no record in the store.
var ErrSiteNotFound = errors.New("imported site not found")

// SiteStore persists ImportedSite lifecycle state. Implementations are
// resolved per tenant through the execution scope; the pipeline never holds
// a store that outlives its scope.
type SiteStore interface {
	CreateSite(ctx context.Context, site ImportedSite) error
	GetSite(ctx context.Context, siteID string) (ImportedSite, error)
	UpdateStatus(ctx context.Context, siteID string, status SiteStatus) error
	UpdatePageCount(ctx context.Context, siteID string, pageCount int) error
}

// ItemStore persists staged items with upsert-by-(site, URL) semantics.
type ItemStore interface {
	UpsertItem(ctx context.Context, item StagedItem) error
	CountItems(ctx context.Context, siteID string) (int, error)
	ListItems(ctx context.Context, siteID string) ([]StagedItem, error)
}

// Fetcher retrieves a single URL and returns the raw response.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// MetadataExtractor turns a parsed document into typed metadata. The pipeline
// treats the returned Title/Type as authoritative and Canonical as the
// redirect target for record keying.
type MetadataExtractor interface {
	Extract(doc *goquery.Document, rules []ExtractionRule, pageURL string) Metadata
}

// Archiver optionally persists raw HTML bodies out of band and returns a URI.
type Archiver interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes import lifecycle events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces site ids (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// SiteJob wraps a site import request ready to run.
type SiteJob struct {
	SiteID    string
	RootURL   string
	TenantKey string
	Submitted int64
}

// Queue provides enqueue/dequeue semantics for site import jobs.
type Queue interface {
	Enqueue(ctx context.Context, job SiteJob) error
	Dequeue(ctx context.Context) (SiteJob, error)
}
