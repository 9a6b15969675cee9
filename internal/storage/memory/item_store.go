package memory

import (
	"context"
	"sync"

	"github.com/draftcms/site-importer/internal/importer"
)

type itemKey struct {
	siteID string
	url    string
}

// ItemStore is an in-memory importer.ItemStore with upsert semantics keyed
// by (site id, URL).
type ItemStore struct {
	mu    sync.RWMutex
	items map[itemKey]importer.StagedItem
	order []itemKey
}

// NewItemStore constructs an ItemStore.
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[itemKey]importer.StagedItem)}
}

// UpsertItem inserts or replaces the record for (item.SiteID, item.URL).
func (s *ItemStore) UpsertItem(_ context.Context, item importer.StagedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := itemKey{siteID: item.SiteID, url: item.URL}
	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = item
	return nil
}

// CountItems returns the number of staged items for a site.
func (s *ItemStore) CountItems(_ context.Context, siteID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for key := range s.items {
		if key.siteID == siteID {
			count++
		}
	}
	return count, nil
}

// ListItems returns a site's staged items in insertion order.
func (s *ItemStore) ListItems(_ context.Context, siteID string) ([]importer.StagedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []importer.StagedItem
	for _, key := range s.order {
		if key.siteID != siteID {
			continue
		}
		out = append(out, s.items[key])
	}
	return out, nil
}
