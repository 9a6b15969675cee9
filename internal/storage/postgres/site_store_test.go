package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/draftcms/site-importer/internal/importer"
)

func TestCreateSiteInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSiteStoreWithPool(mock)
	require.NoError(t, err)

	site := importer.ImportedSite{
		ID:      "site-1",
		RootURL: "https://shop.test/",
		Status:  importer.SiteStatusPending,
		Config: importer.CrawlConfig{
			MaxPages:   50,
			AutoDetect: true,
		},
	}

	mock.ExpectExec("INSERT INTO imported_sites").
		WithArgs(site.ID, site.RootURL, "pending", 0, site.Config).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateSite(context.Background(), site))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSiteScansRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSiteStoreWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	cfg := importer.CrawlConfig{MaxPages: 100, AutoDetect: true}

	mock.ExpectQuery("SELECT id, root_url, status, page_count, config").
		WithArgs("site-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "root_url", "status", "page_count", "config", "created_at", "updated_at",
		}).AddRow("site-1", "https://shop.test/", "crawling", 7, cfg, now, now))

	site, err := store.GetSite(context.Background(), "site-1")
	require.NoError(t, err)
	require.Equal(t, importer.SiteStatusCrawling, site.Status)
	require.Equal(t, 7, site.PageCount)
	require.Equal(t, 100, site.Config.MaxPages)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSiteNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSiteStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, root_url, status, page_count, config").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetSite(context.Background(), "missing")
	require.ErrorIs(t, err, importer.ErrSiteNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingSite(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSiteStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE imported_sites").
		WithArgs("missing", "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateStatus(context.Background(), "missing", importer.SiteStatusCancelled)
	require.ErrorIs(t, err, importer.ErrSiteNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePageCount(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSiteStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("UPDATE imported_sites").
		WithArgs("site-1", 42).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdatePageCount(context.Background(), "site-1", 42))
	require.NoError(t, mock.ExpectationsWereMet())
}
