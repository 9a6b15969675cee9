// Package ratelimit implements per-host politeness limiting for page fetches.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var waitDelaySeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "importer_politeness_delay_seconds",
		Help:    "Histogram of politeness wait durations per host.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	},
	[]string{"host"},
)

// Limiter hands out fetch tokens per host. Concurrent imports of different
// sites never throttle each other; two jobs against the same host share one
// budget.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
	burst    int
}

// Config holds limiter settings.
type Config struct {
	// Interval is the minimum gap between fetches to one host.
	Interval time.Duration
	// Burst allows this many immediate fetches before the interval applies
	// (default 1).
	Burst int
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		interval: cfg.Interval,
		burst:    cfg.Burst,
	}
}

// Wait blocks until a token is available for the URL's host, respecting the
// context.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.interval), l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		waitDelaySeconds.WithLabelValues(host).Observe(d.Seconds())
	}
	return nil
}
