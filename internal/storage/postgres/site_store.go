// Package postgres provides Postgres-backed persistence implementations for
// site and staged item records.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftcms/site-importer/internal/importer"
)

// db is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// SiteStoreConfig controls the Postgres connection pool for site rows.
type SiteStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// SiteStore reads and writes imported_sites rows.
type SiteStore struct {
	pool db
}

// NewSiteStore creates a Postgres-backed SiteStore using the provided config.
func NewSiteStore(ctx context.Context, cfg SiteStoreConfig) (*SiteStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SiteStore{pool: pool}, nil
}

// NewSiteStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewSiteStoreWithPool(pool db) (*SiteStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &SiteStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *SiteStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateSite inserts a new imported_sites row.
func (s *SiteStore) CreateSite(ctx context.Context, site importer.ImportedSite) error {
	query := `
INSERT INTO imported_sites (id, root_url, status, page_count, config, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`
	_, err := s.pool.Exec(ctx, query,
		site.ID,
		site.RootURL,
		string(site.Status),
		site.PageCount,
		site.Config,
	)
	if err != nil {
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

// GetSite fetches one imported_sites row.
func (s *SiteStore) GetSite(ctx context.Context, siteID string) (importer.ImportedSite, error) {
	query := `
SELECT id, root_url, status, page_count, config, created_at, updated_at
FROM imported_sites
WHERE id = $1`
	var site importer.ImportedSite
	var status string
	err := s.pool.QueryRow(ctx, query, siteID).Scan(
		&site.ID,
		&site.RootURL,
		&status,
		&site.PageCount,
		&site.Config,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return importer.ImportedSite{}, importer.ErrSiteNotFound
	}
	if err != nil {
		return importer.ImportedSite{}, fmt.Errorf("query site: %w", err)
	}
	site.Status = importer.SiteStatus(status)
	return site, nil
}

// UpdateStatus sets the lifecycle status for a site.
func (s *SiteStore) UpdateStatus(ctx context.Context, siteID string, status importer.SiteStatus) error {
	query := `
UPDATE imported_sites
SET status = $2, updated_at = NOW()
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, siteID, string(status))
	if err != nil {
		return fmt.Errorf("update site status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importer.ErrSiteNotFound
	}
	return nil
}

// UpdatePageCount sets the staged item count for a site.
func (s *SiteStore) UpdatePageCount(ctx context.Context, siteID string, pageCount int) error {
	query := `
UPDATE imported_sites
SET page_count = $2, updated_at = NOW()
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, siteID, pageCount)
	if err != nil {
		return fmt.Errorf("update page count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return importer.ErrSiteNotFound
	}
	return nil
}
