package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalPagesStaged tracks staged items written across all import jobs.
	TotalPagesStaged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_pages_staged_total",
		Help: "The total number of staged items persisted, by item type.",
	}, []string{"type"})
	// TotalPagesSkipped tracks frontier URLs that produced no staged item.
	TotalPagesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_pages_skipped_total",
		Help: "The total number of frontier URLs skipped, by reason.",
	}, []string{"reason"})
	// TotalJobs tracks finished import jobs by terminal status.
	TotalJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "importer_jobs_total",
		Help: "The total number of import jobs finished, by status.",
	}, []string{"status"})
	// FetchDuration observes page fetch latency.
	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "importer_fetch_duration_seconds",
		Help:    "Page fetch latency during import crawls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)
