package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/draftcms/site-importer/internal/importer"
	queuemem "github.com/draftcms/site-importer/internal/queue/memory"
	"github.com/draftcms/site-importer/internal/worker"
)

func TestCrawlSiteEnqueuesJob(t *testing.T) {
	t.Parallel()

	queue := queuemem.NewQueue(1)
	d := New(queue, nil)

	before := time.Now().UTC().Unix()
	require.NoError(t, d.CrawlSite(context.Background(), "acme", "site-1", "https://shop.test/"))

	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "site-1", job.SiteID)
	require.Equal(t, "https://shop.test/", job.RootURL)
	require.Equal(t, "acme", job.TenantKey)
	require.GreaterOrEqual(t, job.Submitted, before)
}

func TestCrawlSiteFullQueue(t *testing.T) {
	t.Parallel()

	queue := queuemem.NewQueue(1)
	d := New(queue, nil)

	require.NoError(t, d.CrawlSite(context.Background(), "acme", "site-1", "https://shop.test/"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.CrawlSite(ctx, "acme", "site-2", "https://shop.test/")
	require.Error(t, err)
	require.Contains(t, err.Error(), "queue enqueue")
}

func TestRunStopsWorkersOnCancel(t *testing.T) {
	t.Parallel()

	queue := queuemem.NewQueue(1)
	workers := []*worker.Worker{
		worker.New(queue, nil, nil, nil),
		worker.New(queue, nil, nil, nil),
	}
	d := New(queue, workers)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}

	// Jobs enqueued after shutdown stay in the queue untouched.
	require.NoError(t, queue.Enqueue(context.Background(), importer.SiteJob{SiteID: "late"}))
	job, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "late", job.SiteID)
}
