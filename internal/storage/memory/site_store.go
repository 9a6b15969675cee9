// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/draftcms/site-importer/internal/importer"
)

// SiteStore is an in-memory importer.SiteStore.
type SiteStore struct {
	mu    sync.RWMutex
	sites map[string]importer.ImportedSite
}

// NewSiteStore constructs a SiteStore.
func NewSiteStore() *SiteStore {
	return &SiteStore{sites: make(map[string]importer.ImportedSite)}
}

// CreateSite inserts a new site record. Duplicate ids are rejected.
func (s *SiteStore) CreateSite(_ context.Context, site importer.ImportedSite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sites[site.ID]; ok {
		return fmt.Errorf("site %s already exists", site.ID)
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	site.UpdatedAt = time.Now().UTC()
	s.sites[site.ID] = site
	return nil
}

// PutSite seeds or replaces a site record; test helper.
func (s *SiteStore) PutSite(_ context.Context, site importer.ImportedSite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	site.UpdatedAt = time.Now().UTC()
	s.sites[site.ID] = site
	return nil
}

// GetSite fetches a site by id.
func (s *SiteStore) GetSite(_ context.Context, siteID string) (importer.ImportedSite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[siteID]
	if !ok {
		return importer.ImportedSite{}, importer.ErrSiteNotFound
	}
	return site, nil
}

// UpdateStatus sets the lifecycle status for a site.
func (s *SiteStore) UpdateStatus(_ context.Context, siteID string, status importer.SiteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[siteID]
	if !ok {
		return importer.ErrSiteNotFound
	}
	site.Status = status
	site.UpdatedAt = time.Now().UTC()
	s.sites[siteID] = site
	return nil
}

// UpdatePageCount sets the staged item count for a site.
func (s *SiteStore) UpdatePageCount(_ context.Context, siteID string, pageCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[siteID]
	if !ok {
		return importer.ErrSiteNotFound
	}
	site.PageCount = pageCount
	site.UpdatedAt = time.Now().UTC()
	s.sites[siteID] = site
	return nil
}
