package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/draftcms/site-importer/internal/importer"
)

// ItemStoreConfig controls the Postgres connection pool for staged items.
type ItemStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// ItemStore writes staged_items rows with upsert-by-(site_id, url) semantics.
type ItemStore struct {
	pool db
}

// NewItemStore creates a Postgres-backed ItemStore using the provided config.
func NewItemStore(ctx context.Context, cfg ItemStoreConfig) (*ItemStore, error) {
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
	return &ItemStore{pool: pool}, nil
}

// NewItemStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewItemStoreWithPool(pool db) (*ItemStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ItemStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ItemStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertItem inserts the staged item or replaces the existing row for
// (site_id, url).
func (s *ItemStore) UpsertItem(ctx context.Context, item importer.StagedItem) error {
	metaJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	query := `
INSERT INTO staged_items (site_id, url, title, item_type, body, structural_hash, metadata, status, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (site_id, url) DO UPDATE SET
	title = EXCLUDED.title,
	item_type = EXCLUDED.item_type,
	body = EXCLUDED.body,
	structural_hash = EXCLUDED.structural_hash,
	metadata = EXCLUDED.metadata,
	status = EXCLUDED.status,
	fetched_at = EXCLUDED.fetched_at`
	_, err = s.pool.Exec(ctx, query,
		item.SiteID,
		item.URL,
		item.Title,
		string(item.Type),
		item.Body,
		nullableString(item.StructuralHash),
		metaJSON,
		item.Status,
		item.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert staged item: %w", err)
	}
	return nil
}

// CountItems returns the number of staged items for a site.
func (s *ItemStore) CountItems(ctx context.Context, siteID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM staged_items WHERE site_id = $1`, siteID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count staged items: %w", err)
	}
	return count, nil
}

// ListItems returns a site's staged items ordered by fetch time.
func (s *ItemStore) ListItems(ctx context.Context, siteID string) ([]importer.StagedItem, error) {
	query := `
SELECT site_id, url, title, item_type, body, structural_hash, metadata, status, fetched_at
FROM staged_items
WHERE site_id = $1
ORDER BY fetched_at`
	rows, err := s.pool.Query(ctx, query, siteID)
	if err != nil {
		return nil, fmt.Errorf("query staged items: %w", err)
	}
	defer rows.Close()

	var items []importer.StagedItem
	for rows.Next() {
		var item importer.StagedItem
		var itemType string
		var hash *string
		var metaJSON []byte
		if err := rows.Scan(
			&item.SiteID,
			&item.URL,
			&item.Title,
			&itemType,
			&item.Body,
			&hash,
			&metaJSON,
			&item.Status,
			&item.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan staged item: %w", err)
		}
		item.Type = importer.ItemType(itemType)
		if hash != nil {
			item.StructuralHash = *hash
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate staged items: %w", err)
	}
	return items, nil
}

// nullableString maps the empty string to SQL NULL; a page whose fingerprint
// failed stores a null structural hash, not an empty one.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
