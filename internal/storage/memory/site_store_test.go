package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftcms/site-importer/internal/importer"
)

func TestSiteStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSiteStore()

	site := importer.ImportedSite{
		ID:      "site-1",
		RootURL: "https://shop.test/",
		Status:  importer.SiteStatusPending,
	}
	require.NoError(t, store.CreateSite(ctx, site))

	got, err := store.GetSite(ctx, "site-1")
	require.NoError(t, err)
	require.Equal(t, importer.SiteStatusPending, got.Status)
	require.False(t, got.CreatedAt.IsZero())
	require.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.UpdateStatus(ctx, "site-1", importer.SiteStatusCrawling))
	require.NoError(t, store.UpdatePageCount(ctx, "site-1", 12))

	got, err = store.GetSite(ctx, "site-1")
	require.NoError(t, err)
	require.Equal(t, importer.SiteStatusCrawling, got.Status)
	require.Equal(t, 12, got.PageCount)
}

func TestSiteStoreCreateDuplicate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSiteStore()
	site := importer.ImportedSite{ID: "site-1", RootURL: "https://shop.test/"}
	require.NoError(t, store.CreateSite(ctx, site))
	require.Error(t, store.CreateSite(ctx, site))
}

func TestSiteStoreNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewSiteStore()

	_, err := store.GetSite(ctx, "missing")
	require.ErrorIs(t, err, importer.ErrSiteNotFound)
	require.ErrorIs(t, store.UpdateStatus(ctx, "missing", importer.SiteStatusFailed), importer.ErrSiteNotFound)
	require.ErrorIs(t, store.UpdatePageCount(ctx, "missing", 1), importer.ErrSiteNotFound)
}
