// Package dispatcher manages worker fan-out over the import job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/draftcms/site-importer/internal/importer"
	"github.com/draftcms/site-importer/internal/worker"
)

// Dispatcher fans out queue work to a pool of workers. Each worker runs one
// site import at a time; concurrency across sites comes from the pool size.
type Dispatcher struct {
	queue   importer.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue importer.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// CrawlSite is the fire-and-forget job trigger: the caller has already
// created the pending ImportedSite record; this only enqueues the work.
func (d *Dispatcher) CrawlSite(ctx context.Context, tenantKey, siteID, rootURL string) error {
	job := importer.SiteJob{
		SiteID:    siteID,
		RootURL:   rootURL,
		TenantKey: tenantKey,
		Submitted: time.Now().UTC().Unix(),
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
