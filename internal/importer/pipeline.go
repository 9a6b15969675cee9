package importer

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/draftcms/site-importer/internal/policy/ratelimit"
	"github.com/draftcms/site-importer/internal/progress"
)

// PipelineConfig controls pipeline behavior shared by all jobs.
type PipelineConfig struct {
	// FetchDelay is the politeness delay between successive page fetches.
	FetchDelay time.Duration
	// ArchivePrefix is prepended to archive object paths.
	ArchivePrefix string
	// CompletionTopic, when set with a Publisher, receives a JSON event per
	// finished job.
	CompletionTopic string
}

// Pipeline executes one site import job at a time: detection, the optional
// feed fast path, sitemap seeding, and the sequential frontier loop. The loop
// is deliberately one-URL-at-a-time; politeness, not throughput, bounds it.
type Pipeline struct {
	fetcher   Fetcher
	extractor MetadataExtractor
	detector  *BlueprintDetector
	seeder    *SitemapSeeder
	feed      *FeedImporter
	archiver  Archiver
	publisher Publisher
	emitter   progress.Emitter
	clock     Clock
	limiter   *ratelimit.Limiter
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline. archiver, publisher, and emitter may be
// nil; the corresponding side effects are skipped.
func NewPipeline(
	fetcher Fetcher,
	extractor MetadataExtractor,
	detector *BlueprintDetector,
	seeder *SitemapSeeder,
	feed *FeedImporter,
	archiver Archiver,
	publisher Publisher,
	emitter progress.Emitter,
	clock Clock,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FetchDelay <= 0 {
		cfg.FetchDelay = time.Second
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		detector:  detector,
		seeder:    seeder,
		feed:      feed,
		archiver:  archiver,
		publisher: publisher,
		emitter:   emitter,
		clock:     clock,
		limiter:   ratelimit.New(ratelimit.Config{Interval: cfg.FetchDelay}),
		cfg:       cfg,
		logger:    logger,
	}
}

// Run executes the import job for siteID against the tenant-scoped stores it
// is handed. Per-page problems surface as skips; only orchestration-level
// failures (store unavailable, unusable root URL) return an error, which the
// caller records as a failed job. An externally set cancelled status halts
// the loop and is left untouched.
func (p *Pipeline) Run(ctx context.Context, sites SiteStore, items ItemStore, siteID string) error {
	site, err := sites.GetSite(ctx, siteID)
	if err != nil {
		return fmt.Errorf("load site %s: %w", siteID, err)
	}
	// Cancelled is terminal. A job cancelled while still queued must not be
	// crawled, and its status must not be rewritten.
	if site.Status == SiteStatusCancelled {
		p.logger.Info("import cancelled before run", zap.String("site_id", siteID))
		return nil
	}
	root, err := url.Parse(site.RootURL)
	if err != nil || root.Hostname() == "" {
		return fmt.Errorf("root url %q is not crawlable", site.RootURL)
	}
	rootHost := root.Hostname()

	p.emit(progress.Event{SiteID: siteID, Stage: progress.StageJobStart, URL: site.RootURL})
	started := p.clock.Now()

	cfg := site.Config
	if cfg.AutoDetect && p.detector != nil {
		if preset, ok := p.detector.Detect(ctx, site.RootURL); ok {
			cfg = MergeConfig(cfg, preset, site.RootURL)
		}
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	frontier := NewFrontier()
	pageCount := 0

	if cfg.FeedURL != "" && p.feed != nil {
		imported, err := p.feed.Import(ctx, sites, items, siteID, cfg.FeedURL, frontier)
		if err != nil {
			return fmt.Errorf("feed import: %w", err)
		}
		if imported > 0 {
			// page_count reflects this run's imports, not items left over
			// from earlier runs against the same site.
			pageCount = imported
			p.emit(progress.Event{
				SiteID: siteID,
				Stage:  progress.StageFeedImport,
				URL:    cfg.FeedURL,
				Count:  pageCount,
			})
		}
	}

	if err := sites.UpdateStatus(ctx, siteID, SiteStatusCrawling); err != nil {
		return fmt.Errorf("mark crawling: %w", err)
	}

	EnqueueCandidate(root, rootHost, frontier, cfg)
	if p.seeder != nil {
		for _, seed := range p.seeder.Seed(ctx, site.RootURL) {
			if candidate, err := url.Parse(seed); err == nil {
				EnqueueCandidate(candidate, rootHost, frontier, cfg)
			}
		}
	}

	// page_count reflects distinct persisted items, so an upsert that
	// converges a canonical duplicate onto an existing key does not count.
	staged := 0
	stagedKeys := make(map[string]struct{})
	for frontier.Len() > 0 && staged < cfg.MaxPages {
		// Cooperative cancellation: re-read status before every fetch. The
		// external cancelled value is left as-is.
		current, err := sites.GetSite(ctx, siteID)
		if err != nil {
			return fmt.Errorf("poll site status: %w", err)
		}
		if current.Status == SiteStatusCancelled {
			p.logger.Info("import cancelled externally",
				zap.String("site_id", siteID),
				zap.Int("staged", staged),
			)
			return nil
		}

		next, ok := frontier.Pop()
		if !ok {
			break
		}
		if err := p.limiter.Wait(ctx, next); err != nil {
			return fmt.Errorf("politeness wait: %w", err)
		}

		result := p.processURL(ctx, items, siteID, next, rootHost, frontier, cfg)
		if !result.Staged() {
			TotalPagesSkipped.WithLabelValues(string(result.Skip)).Inc()
			p.emit(progress.Event{
				SiteID: siteID,
				Stage:  progress.StagePageSkipped,
				URL:    next,
				Note:   string(result.Skip),
			})
			p.logger.Debug("page skipped",
				zap.String("site_id", siteID),
				zap.String("url", next),
				zap.String("reason", string(result.Skip)),
				zap.Error(result.Err),
			)
			continue
		}

		if _, dup := stagedKeys[result.Item.URL]; dup {
			TotalPagesSkipped.WithLabelValues(string(SkipAlreadyStaged)).Inc()
			p.emit(progress.Event{
				SiteID: siteID,
				Stage:  progress.StagePageSkipped,
				URL:    result.Item.URL,
				Note:   string(SkipAlreadyStaged),
			})
			continue
		}
		stagedKeys[result.Item.URL] = struct{}{}
		staged++
		pageCount++
		if err := sites.UpdatePageCount(ctx, siteID, pageCount); err != nil {
			return fmt.Errorf("update page count: %w", err)
		}
		TotalPagesStaged.WithLabelValues(string(result.Item.Type)).Inc()
		p.emit(progress.Event{
			SiteID: siteID,
			Stage:  progress.StagePageStaged,
			URL:    result.Item.URL,
			Count:  pageCount,
		})
	}

	// A cancel can land while the last page is processed, after the loop's
	// status poll. Re-read once more so completed never overwrites it.
	final, err := sites.GetSite(ctx, siteID)
	if err != nil {
		return fmt.Errorf("poll site status: %w", err)
	}
	if final.Status == SiteStatusCancelled {
		p.logger.Info("import cancelled externally",
			zap.String("site_id", siteID),
			zap.Int("staged", staged),
		)
		return nil
	}

	if err := sites.UpdateStatus(ctx, siteID, SiteStatusCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	TotalJobs.WithLabelValues(string(SiteStatusCompleted)).Inc()
	p.emit(progress.Event{
		SiteID: siteID,
		Stage:  progress.StageJobDone,
		Count:  pageCount,
		Dur:    p.clock.Now().Sub(started),
		Note:   string(SiteStatusCompleted),
	})
	p.publishCompletion(ctx, siteID, site.RootURL, pageCount)
	return nil
}

// processURL runs one frontier iteration: fetch, fingerprint, extract,
// canonical resolution, upsert, link discovery. Every failure mode is a
// typed skip so the loop (and tests) can see why a URL produced nothing.
func (p *Pipeline) processURL(
	ctx context.Context,
	items ItemStore,
	siteID string,
	currentURL string,
	rootHost string,
	frontier *Frontier,
	cfg CrawlConfig,
) PageResult {
	page, err := p.fetcher.Fetch(ctx, currentURL)
	if err != nil {
		return PageResult{Skip: SkipFetchError, Err: err}
	}
	FetchDuration.Observe(page.Duration.Seconds())
	if page.StatusCode < http.StatusOK || page.StatusCode >= http.StatusBadRequest {
		return PageResult{Skip: SkipBadStatus, Err: fmt.Errorf("status %d", page.StatusCode)}
	}
	if ct := page.Headers.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return PageResult{Skip: SkipNotHTML, Err: fmt.Errorf("content type %q", ct)}
	}

	parsed, err := url.Parse(currentURL)
	if err != nil {
		return PageResult{Skip: SkipFetchError, Err: err}
	}

	var meta Metadata
	structuralHash := ""
	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if parseErr == nil {
		meta = p.extractor.Extract(doc, cfg.ExtractionRules, currentURL)
		// A failed fingerprint stages the page with no hash; it just will
		// not cluster with its template family.
		if hash, err := Fingerprint(page.Body); err == nil {
			structuralHash = hash
		}
	}

	itemURL := p.resolveCanonical(currentURL, parsed, meta.Canonical, rootHost, frontier)

	if p.archiver != nil {
		path := archivePath(p.cfg.ArchivePrefix, siteID, itemURL)
		if uri, err := p.archiver.PutObject(ctx, path, "text/html; charset=utf-8", page.Body); err == nil {
			meta.ArchiveURI = uri
		} else {
			p.logger.Warn("archive write failed", zap.String("url", itemURL), zap.Error(err))
		}
	}

	itemType := ItemTypePage
	if meta.Type == string(ItemTypeProduct) {
		itemType = ItemTypeProduct
	}
	item := StagedItem{
		SiteID:         siteID,
		URL:            itemURL,
		Title:          meta.Title,
		Type:           itemType,
		Body:           string(page.Body),
		StructuralHash: structuralHash,
		Metadata:       meta,
		Status:         "completed",
		FetchedAt:      p.clock.Now(),
	}
	if err := items.UpsertItem(ctx, item); err != nil {
		return PageResult{Skip: SkipStoreError, Err: err}
	}

	if parseErr == nil {
		DiscoverLinks(doc, parsed, rootHost, frontier, cfg)
	}
	return PageResult{Item: &item}
}

// resolveCanonical keys the record under a declared canonical URL when it
// stays on the root host, and re-queues the canonical for direct visitation
// when it has not been seen. Cross-host canonicals are ignored to preserve
// domain containment.
func (p *Pipeline) resolveCanonical(
	currentURL string,
	parsed *url.URL,
	canonical string,
	rootHost string,
	frontier *Frontier,
) string {
	if canonical == "" {
		return currentURL
	}
	ref, err := url.Parse(canonical)
	if err != nil {
		return currentURL
	}
	abs := parsed.ResolveReference(ref)
	if !strings.EqualFold(abs.Hostname(), rootHost) {
		return currentURL
	}
	normalized, err := NormalizeURL(abs.String())
	if err != nil || normalized == currentURL {
		return currentURL
	}
	if !frontier.Visited(normalized) {
		frontier.PushBack(normalized)
	}
	return normalized
}

func (p *Pipeline) publishCompletion(ctx context.Context, siteID, rootURL string, pageCount int) {
	if p.publisher == nil || p.cfg.CompletionTopic == "" {
		return
	}
	payload := map[string]any{
		"site_id":    siteID,
		"root_url":   rootURL,
		"page_count": pageCount,
		"status":     string(SiteStatusCompleted),
		"timestamp":  p.clock.Now().Format(time.RFC3339),
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.CompletionTopic, payload); err != nil {
		p.logger.Warn("completion publish failed", zap.String("site_id", siteID), zap.Error(err))
	}
}

func (p *Pipeline) emit(evt progress.Event) {
	if p.emitter == nil {
		return
	}
	evt.TS = p.clock.Now()
	p.emitter.Emit(evt)
}

func archivePath(prefix, siteID, itemURL string) string {
	trimmed := strings.Trim(prefix, "/")
	sum := urlSlug(itemURL)
	if trimmed == "" {
		return fmt.Sprintf("%s/%s.html", siteID, sum)
	}
	return fmt.Sprintf("%s/%s/%s.html", trimmed, siteID, sum)
}
