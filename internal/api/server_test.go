package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/draftcms/site-importer/internal/clock/system"
	"github.com/draftcms/site-importer/internal/config"
	"github.com/draftcms/site-importer/internal/dispatcher"
	iduuid "github.com/draftcms/site-importer/internal/id/uuid"
	"github.com/draftcms/site-importer/internal/importer"
	"github.com/draftcms/site-importer/internal/progress"
	queuemem "github.com/draftcms/site-importer/internal/queue/memory"
	"github.com/draftcms/site-importer/internal/storage/memory"
	"github.com/draftcms/site-importer/internal/store"
	"github.com/draftcms/site-importer/internal/tenant"
)

type testEnv struct {
	server   *Server
	sites    *memory.SiteStore
	items    *memory.ItemStore
	queue    *queuemem.Queue
	progress *store.MemoryProgressRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sites := memory.NewSiteStore()
	items := memory.NewItemStore()
	tenants := tenant.NewRegistry()
	require.NoError(t, tenants.Register("acme", tenant.Datastore{Sites: sites, Items: items}))

	queue := queuemem.NewQueue(8)
	repo := store.NewMemoryProgressRepo(0)
	srv := NewServer(
		tenants,
		dispatcher.New(queue, nil),
		iduuid.New(),
		system.New(),
		repo,
		config.Config{},
		zap.NewNop(),
	)
	return &testEnv{server: srv, sites: sites, items: items, queue: queue, progress: repo}
}

func (e *testEnv) do(method, path, tenantKey string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tenantKey != "" {
		req.Header.Set(tenantHeader, tenantKey)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedSite(t *testing.T, status importer.SiteStatus) string {
	t.Helper()
	site := importer.ImportedSite{
		ID:      "site-1",
		RootURL: "https://shop.test/",
		Status:  status,
	}
	require.NoError(t, e.sites.CreateSite(context.Background(), site))
	return site.ID
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", nil).Code)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestCreateImportAccepted(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := []byte(`{"root_url":"https://shop.test","max_pages":25}`)
	rec := env.do(http.MethodPost, "/v1/imports", "acme", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["site_id"])
	require.Equal(t, "pending", resp["status"])

	site, err := env.sites.GetSite(context.Background(), resp["site_id"])
	require.NoError(t, err)
	require.Equal(t, importer.SiteStatusPending, site.Status)
	require.Equal(t, 25, site.Config.MaxPages)
	require.True(t, site.Config.AutoDetect)

	job, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, resp["site_id"], job.SiteID)
	require.Equal(t, "acme", job.TenantKey)
}

func TestCreateImportValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/v1/imports", "", []byte(`{"root_url":"https://shop.test"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/imports", "ghost", []byte(`{"root_url":"https://shop.test"}`))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/v1/imports", "acme", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/imports", "acme", []byte(`{"root_url":"ftp://shop.test"}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/imports", "acme", []byte(`{"root_url":""}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateImportAutoDetectOptOut(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := []byte(`{"root_url":"https://shop.test","auto_detect":false}`)
	rec := env.do(http.MethodPost, "/v1/imports", "acme", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	site, err := env.sites.GetSite(context.Background(), resp["site_id"])
	require.NoError(t, err)
	require.False(t, site.Config.AutoDetect)
}

func TestGetImport(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	siteID := env.seedSite(t, importer.SiteStatusCrawling)

	rec := env.do(http.MethodGet, "/v1/imports/"+siteID, "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Site importer.ImportedSite `json:"site"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, importer.SiteStatusCrawling, resp.Site.Status)

	rec = env.do(http.MethodGet, "/v1/imports/missing", "acme", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListItems(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	siteID := env.seedSite(t, importer.SiteStatusCompleted)
	require.NoError(t, env.items.UpsertItem(context.Background(), importer.StagedItem{
		SiteID: siteID,
		URL:    "https://shop.test/products/hat",
		Title:  "Hat",
		Type:   importer.ItemTypeProduct,
	}))

	rec := env.do(http.MethodGet, "/v1/imports/"+siteID+"/items", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []importer.StagedItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, "Hat", resp.Items[0].Title)

	rec = env.do(http.MethodGet, "/v1/imports/missing/items", "acme", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProgress(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	siteID := env.seedSite(t, importer.SiteStatusCrawling)
	require.NoError(t, env.progress.Consume(context.Background(), []progress.Event{
		{SiteID: siteID, TS: time.Now().UTC(), Stage: progress.StageJobStart, URL: "https://shop.test/"},
		{SiteID: siteID, TS: time.Now().UTC(), Stage: progress.StagePageStaged, URL: "https://shop.test/", Count: 1},
	}))

	rec := env.do(http.MethodGet, "/v1/imports/"+siteID+"/progress", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Events []progressDTO `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	require.Equal(t, string(progress.StageJobStart), resp.Events[0].Stage)

	rec = env.do(http.MethodGet, "/v1/imports/"+siteID+"/progress?limit=1", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)

	rec = env.do(http.MethodGet, "/v1/imports/"+siteID+"/progress?limit=zero", "acme", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProgressDisabled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.server.progress = nil
	siteID := env.seedSite(t, importer.SiteStatusCrawling)

	rec := env.do(http.MethodGet, "/v1/imports/"+siteID+"/progress", "acme", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCancelImport(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	siteID := env.seedSite(t, importer.SiteStatusCrawling)

	rec := env.do(http.MethodPost, "/v1/imports/"+siteID+"/cancel", "acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	site, err := env.sites.GetSite(context.Background(), siteID)
	require.NoError(t, err)
	require.Equal(t, importer.SiteStatusCancelled, site.Status)

	// A second cancel hits a terminal status.
	rec = env.do(http.MethodPost, "/v1/imports/"+siteID+"/cancel", "acme", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/v1/imports/missing/cancel", "acme", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
