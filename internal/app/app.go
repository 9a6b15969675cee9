// Package app initializes and holds the long-lived services of the importer,
// acting as the dependency injection container for the cobra commands.
package app

import (
	"context"
	"fmt"
	"time"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/draftcms/site-importer/internal/api"
	gcsarchive "github.com/draftcms/site-importer/internal/archive/gcs"
	"github.com/draftcms/site-importer/internal/clock/system"
	"github.com/draftcms/site-importer/internal/config"
	"github.com/draftcms/site-importer/internal/dispatcher"
	"github.com/draftcms/site-importer/internal/extract"
	collyfetcher "github.com/draftcms/site-importer/internal/fetcher/colly"
	"github.com/draftcms/site-importer/internal/id/uuid"
	"github.com/draftcms/site-importer/internal/importer"
	"github.com/draftcms/site-importer/internal/logging"
	"github.com/draftcms/site-importer/internal/progress"
	"github.com/draftcms/site-importer/internal/progress/sinks"
	pubsubpublisher "github.com/draftcms/site-importer/internal/publisher/pubsub"
	memoryqueue "github.com/draftcms/site-importer/internal/queue/memory"
	memorystore "github.com/draftcms/site-importer/internal/storage/memory"
	"github.com/draftcms/site-importer/internal/storage/postgres"
	"github.com/draftcms/site-importer/internal/store"
	"github.com/draftcms/site-importer/internal/tenant"
	"github.com/draftcms/site-importer/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
)

// App holds the shared services for one process: stores, queue, pipeline,
// dispatcher, and the HTTP server. Initialized once at startup and closed by
// a cobra hook on exit.
type App struct {
	Cfg        config.Config
	Logger     *zap.Logger
	Tenants    *tenant.Registry
	Queue      *memoryqueue.Queue
	Dispatcher *dispatcher.Dispatcher
	Pipeline   *importer.Pipeline
	Server     *api.Server
	Hub        *progress.Hub
	Progress   *store.MemoryProgressRepo

	siteStores []*postgres.SiteStore
	itemStores []*postgres.ItemStore
	pubsub     *gcpubsub.Client
}

// New builds the App from configuration. It fails fast when a critical
// downstream (database, GCS, Pub/Sub) cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Cfg: cfg, Logger: logger}

	if err := a.initTenants(ctx); err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Importer.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	}, logger)

	var archiver importer.Archiver
	if cfg.Storage.GCSBucket != "" {
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		archiver, err = gcsarchive.New(client, gcsarchive.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		logger.Info("html archival enabled", zap.String("bucket", cfg.Storage.GCSBucket))
	}

	var publisher importer.Publisher
	if cfg.PubSub.ProjectID != "" {
		client, err := gcpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		a.pubsub = client
		publisher = pubsubpublisher.New(client)
		logger.Info("completion publishing enabled", zap.String("topic", cfg.PubSub.CompletionTopic))
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init progress metrics: %w", err)
	}
	a.Progress = store.NewMemoryProgressRepo(0)
	a.Hub = progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
		a.Progress,
	)

	clk := system.New()
	a.Pipeline = importer.NewPipeline(
		fetcher,
		extract.NewRuleExtractor(),
		importer.NewBlueprintDetector(fetcher, logger),
		importer.NewSitemapSeeder(fetcher, logger),
		importer.NewFeedImporter(fetcher, clk, logger),
		archiver,
		publisher,
		a.Hub,
		clk,
		importer.PipelineConfig{
			FetchDelay:      cfg.FetchDelay(),
			ArchivePrefix:   cfg.Storage.Prefix,
			CompletionTopic: cfg.PubSub.CompletionTopic,
		},
		logger,
	)

	a.Queue = memoryqueue.NewQueue(cfg.Importer.QueueDepth)
	workers := make([]*worker.Worker, 0, cfg.Importer.Workers)
	for i := 0; i < cfg.Importer.Workers; i++ {
		workers = append(workers, worker.New(a.Queue, a.Tenants, a.Pipeline, logger))
	}
	a.Dispatcher = dispatcher.New(a.Queue, workers)

	a.Server = api.NewServer(a.Tenants, a.Dispatcher, uuid.New(), clk, a.Progress, cfg, logger)

	logger.Info("application services initialized",
		zap.Int("workers", cfg.Importer.Workers),
		zap.Int("tenants", len(cfg.TenantList())),
	)
	return a, nil
}

// initTenants registers a datastore per configured tenant. Tenants with a DSN
// get Postgres stores; the rest run in memory.
func (a *App) initTenants(ctx context.Context) error {
	a.Tenants = tenant.NewRegistry()
	for _, tc := range a.Cfg.TenantList() {
		dsn := tc.DSN
		if dsn == "" {
			dsn = a.Cfg.DB.DSN
		}
		var store tenant.Datastore
		if dsn == "" {
			store = tenant.Datastore{
				Sites: memorystore.NewSiteStore(),
				Items: memorystore.NewItemStore(),
			}
			a.Logger.Info("tenant using in-memory stores", zap.String("tenant", tc.Key))
		} else {
			sites, err := postgres.NewSiteStore(ctx, postgres.SiteStoreConfig{
				DSN:      dsn,
				MaxConns: int32(a.Cfg.DB.MaxOpenConns),
			})
			if err != nil {
				return fmt.Errorf("tenant %s site store: %w", tc.Key, err)
			}
			items, err := postgres.NewItemStore(ctx, postgres.ItemStoreConfig{
				DSN:      dsn,
				MaxConns: int32(a.Cfg.DB.MaxOpenConns),
			})
			if err != nil {
				sites.Close()
				return fmt.Errorf("tenant %s item store: %w", tc.Key, err)
			}
			a.siteStores = append(a.siteStores, sites)
			a.itemStores = append(a.itemStores, items)
			store = tenant.Datastore{Sites: sites, Items: items}
			a.Logger.Info("tenant using postgres stores", zap.String("tenant", tc.Key))
		}
		if err := a.Tenants.Register(tc.Key, store); err != nil {
			return fmt.Errorf("register tenant %s: %w", tc.Key, err)
		}
	}
	return nil
}

// Close shuts down services in dependency order and flushes the logger.
func (a *App) Close() {
	a.Logger.Info("shutting down application services")
	a.Queue.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Hub.Close(ctx); err != nil {
		a.Logger.Warn("progress hub close failed", zap.Error(err))
	}
	for _, s := range a.siteStores {
		s.Close()
	}
	for _, s := range a.itemStores {
		s.Close()
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.Logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
	if err := a.Logger.Sync(); err != nil {
		// Best effort; stderr sync commonly fails on Linux.
		_ = err
	}
}
