// Package worker executes queued site import jobs.
package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/draftcms/site-importer/internal/importer"
	"github.com/draftcms/site-importer/internal/logging"
	"github.com/draftcms/site-importer/internal/tenant"
)

// Worker consumes queue items and runs the import pipeline inside the job's
// tenant scope.
type Worker struct {
	queue    importer.Queue
	tenants  *tenant.Registry
	pipeline *importer.Pipeline
	logger   *zap.Logger
}

// New constructs a Worker.
func New(queue importer.Queue, tenants *tenant.Registry, pipeline *importer.Pipeline, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		tenants:  tenants,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.processJob(ctx, job)
	}
}

// processJob resolves the tenant scope and runs the pipeline. A pipeline
// error is the single condition that marks the job failed; the pipeline has
// already absorbed every per-page problem by the time it returns.
func (w *Worker) processJob(ctx context.Context, job importer.SiteJob) {
	log := logging.ForSite(w.logger, job.TenantKey, job.SiteID)
	err := w.tenants.RunScoped(ctx, job.TenantKey, func(ctx context.Context, scope tenant.Scope) error {
		return w.pipeline.Run(ctx, scope.Sites(), scope.Items(), job.SiteID)
	})
	if err == nil {
		log.Info("import job finished")
		return
	}

	log.Error("import job failed", zap.Error(err))
	importer.TotalJobs.WithLabelValues(string(importer.SiteStatusFailed)).Inc()
	w.markFailed(ctx, job, log)
}

// markFailed is best-effort: if the store itself is down the status update
// fails too, and polling callers see the stale status.
func (w *Worker) markFailed(ctx context.Context, job importer.SiteJob, log *zap.Logger) {
	err := w.tenants.RunScoped(ctx, job.TenantKey, func(ctx context.Context, scope tenant.Scope) error {
		return scope.Sites().UpdateStatus(ctx, job.SiteID, importer.SiteStatusFailed)
	})
	if err != nil {
		log.Error("failed-status update failed", zap.Error(err))
	}
}
