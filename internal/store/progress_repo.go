// Package store keeps recent import progress queryable for the HTTP API.
package store

import (
	"context"
	"sync"

	"github.com/draftcms/site-importer/internal/progress"
)

// defaultKeep bounds how many events are retained per site.
const defaultKeep = 200

// ProgressRepo serves recent progress events for a site.
type ProgressRepo interface {
	RecentEvents(ctx context.Context, siteID string, limit int) ([]progress.Event, error)
}

// MemoryProgressRepo retains a bounded ring of events per site. It doubles as
// a progress.Sink, so wiring it into the Hub is all the plumbing it needs.
type MemoryProgressRepo struct {
	mu    sync.RWMutex
	keep  int
	rings map[string][]progress.Event
}

// NewMemoryProgressRepo constructs a repo keeping up to keep events per site
// (default 200).
func NewMemoryProgressRepo(keep int) *MemoryProgressRepo {
	if keep <= 0 {
		keep = defaultKeep
	}
	return &MemoryProgressRepo{
		keep:  keep,
		rings: make(map[string][]progress.Event),
	}
}

// Consume appends a batch, evicting the oldest events beyond the per-site cap.
func (r *MemoryProgressRepo) Consume(_ context.Context, batch []progress.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, evt := range batch {
		if evt.Validate() != nil {
			continue
		}
		ring := append(r.rings[evt.SiteID], evt)
		if overflow := len(ring) - r.keep; overflow > 0 {
			ring = ring[overflow:]
		}
		r.rings[evt.SiteID] = ring
	}
	return nil
}

// Close is a no-op; retained events stay readable until the process exits.
func (r *MemoryProgressRepo) Close(context.Context) error {
	return nil
}

// RecentEvents returns up to limit events for the site, oldest first.
func (r *MemoryProgressRepo) RecentEvents(_ context.Context, siteID string, limit int) ([]progress.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ring := r.rings[siteID]
	if limit <= 0 || limit > len(ring) {
		limit = len(ring)
	}
	out := make([]progress.Event, limit)
	copy(out, ring[len(ring)-limit:])
	return out, nil
}
