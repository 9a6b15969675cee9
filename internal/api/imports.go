package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/draftcms/site-importer/internal/importer"
	"github.com/draftcms/site-importer/internal/progress"
	"github.com/draftcms/site-importer/internal/tenant"
)

// tenantHeader names the header every /v1 request must carry. There is no
// implicit default tenant.
const tenantHeader = "X-Tenant-Key"

type createImportRequest struct {
	RootURL         string                    `json:"root_url"`
	MaxPages        int                       `json:"max_pages"`
	PriorityPaths   []string                  `json:"priority_paths"`
	ExcludePaths    []string                  `json:"exclude_paths"`
	FeedURL         string                    `json:"feed_url"`
	ExtractionRules []importer.ExtractionRule `json:"extraction_rules"`
	AutoDetect      *bool                     `json:"auto_detect"`
}

func (s *Server) resolveScope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	key := strings.TrimSpace(r.Header.Get(tenantHeader))
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing "+tenantHeader+" header", s.logger)
		return tenant.Scope{}, false
	}
	scope, err := s.tenants.Resolve(key)
	if err != nil {
		writeError(w, http.StatusForbidden, "unknown tenant", s.logger)
		return tenant.Scope{}, false
	}
	return scope, true
}

// createImport handles POST /v1/imports: it persists a pending site record
// and enqueues the crawl, returning 202 with the new site id.
func (s *Server) createImport(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resolveScope(w, r)
	if !ok {
		return
	}
	var req createImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", s.logger)
		return
	}
	rootURL, err := validateRootURL(req.RootURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), s.logger)
		return
	}

	siteID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate site id", s.logger)
		return
	}
	autoDetect := true
	if req.AutoDetect != nil {
		autoDetect = *req.AutoDetect
	}
	site := importer.ImportedSite{
		ID:      siteID,
		RootURL: rootURL,
		Status:  importer.SiteStatusPending,
		Config: importer.CrawlConfig{
			MaxPages:        req.MaxPages,
			PriorityPaths:   req.PriorityPaths,
			ExcludePaths:    req.ExcludePaths,
			FeedURL:         req.FeedURL,
			ExtractionRules: req.ExtractionRules,
			AutoDetect:      autoDetect,
		},
		CreatedAt: s.clock.Now(),
		UpdatedAt: s.clock.Now(),
	}
	if err := scope.Sites().CreateSite(r.Context(), site); err != nil {
		s.logger.Error("create site failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create site", s.logger)
		return
	}
	if err := s.dispatcher.CrawlSite(r.Context(), scope.Key(), siteID, rootURL); err != nil {
		s.logger.Error("enqueue crawl failed", zap.String("site_id", siteID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "import queue is full", s.logger)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"site_id": siteID,
		"status":  string(importer.SiteStatusPending),
	}, s.logger)
}

// getImport handles GET /v1/imports/{site_id}.
func (s *Server) getImport(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resolveScope(w, r)
	if !ok {
		return
	}
	siteID := chi.URLParam(r, "site_id")
	site, err := scope.Sites().GetSite(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, importer.ErrSiteNotFound) {
			writeError(w, http.StatusNotFound, "import not found", s.logger)
			return
		}
		s.logger.Error("get site failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load import", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"site": site}, s.logger)
}

// listItems handles GET /v1/imports/{site_id}/items.
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resolveScope(w, r)
	if !ok {
		return
	}
	siteID := chi.URLParam(r, "site_id")
	if _, err := scope.Sites().GetSite(r.Context(), siteID); err != nil {
		if errors.Is(err, importer.ErrSiteNotFound) {
			writeError(w, http.StatusNotFound, "import not found", s.logger)
			return
		}
		s.logger.Error("get site failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load import", s.logger)
		return
	}
	items, err := scope.Items().ListItems(r.Context(), siteID)
	if err != nil {
		s.logger.Error("list items failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list items", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items}, s.logger)
}

// getProgress handles GET /v1/imports/{site_id}/progress?limit=. It returns
// the recent progress events retained in memory for the site.
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	if s.progress == nil {
		writeError(w, http.StatusServiceUnavailable, "progress tracking is disabled", s.logger)
		return
	}
	scope, ok := s.resolveScope(w, r)
	if !ok {
		return
	}
	siteID := chi.URLParam(r, "site_id")
	if _, err := scope.Sites().GetSite(r.Context(), siteID); err != nil {
		if errors.Is(err, importer.ErrSiteNotFound) {
			writeError(w, http.StatusNotFound, "import not found", s.logger)
			return
		}
		s.logger.Error("get site failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load import", s.logger)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", s.logger)
			return
		}
		limit = val
	}
	events, err := s.progress.RecentEvents(r.Context(), siteID, limit)
	if err != nil {
		s.logger.Error("list progress failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list progress", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": toProgressDTOs(events)}, s.logger)
}

func toProgressDTOs(in []progress.Event) []progressDTO {
	out := make([]progressDTO, 0, len(in))
	for _, evt := range in {
		dto := progressDTO{
			TS:    evt.TS,
			Stage: string(evt.Stage),
			URL:   evt.URL,
			Count: evt.Count,
			Note:  evt.Note,
		}
		if evt.Dur > 0 {
			dto.DurationMs = evt.Dur.Milliseconds()
		}
		out = append(out, dto)
	}
	return out
}

type progressDTO struct {
	TS         time.Time `json:"ts"`
	Stage      string    `json:"stage"`
	URL        string    `json:"url,omitempty"`
	Count      int       `json:"count,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Note       string    `json:"note,omitempty"`
}

// cancelImport handles POST /v1/imports/{site_id}/cancel. Cancellation is a
// status write; the running pipeline observes it between pages and stops.
// Items staged before the flip stay persisted.
func (s *Server) cancelImport(w http.ResponseWriter, r *http.Request) {
	scope, ok := s.resolveScope(w, r)
	if !ok {
		return
	}
	siteID := chi.URLParam(r, "site_id")
	site, err := scope.Sites().GetSite(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, importer.ErrSiteNotFound) {
			writeError(w, http.StatusNotFound, "import not found", s.logger)
			return
		}
		s.logger.Error("get site failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load import", s.logger)
		return
	}
	if site.Status.IsTerminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("import already %s", site.Status), s.logger)
		return
	}
	if err := scope.Sites().UpdateStatus(r.Context(), siteID, importer.SiteStatusCancelled); err != nil {
		s.logger.Error("cancel import failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "cancel import", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"site_id": siteID,
		"status":  string(importer.SiteStatusCancelled),
	}, s.logger)
}

func validateRootURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("root_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.New("invalid root_url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("root_url must be http or https")
	}
	if u.Host == "" {
		return "", errors.New("root_url must include a host")
	}
	return u.String(), nil
}
