// Package tenant scopes every datastore operation in the import pipeline to
// one tenant. Scoping is an explicit handle passed down the call stack, never
// ambient state, so concurrent jobs for different tenants can interleave on
// the same process without reading or writing each other's records.
package tenant

import (
	"context"
	"fmt"
	"sync"

	"github.com/draftcms/site-importer/internal/importer"
)

// Datastore bundles the per-tenant store implementations.
type Datastore struct {
	Sites importer.SiteStore
	Items importer.ItemStore
}

// Scope is the handle a job carries for the duration of its run. It is
// immutable and safe to share within a single job.
type Scope struct {
	key   string
	store Datastore
}

// Key returns the tenant key the scope was resolved for.
func (s Scope) Key() string { return s.key }

// Sites returns the tenant's site store.
func (s Scope) Sites() importer.SiteStore { return s.store.Sites }

// Items returns the tenant's staged item store.
func (s Scope) Items() importer.ItemStore { return s.store.Items }

// Registry resolves tenant keys to datastores. Registration happens at
// startup; resolution is read-mostly and safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Datastore
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Datastore)}
}

// Register associates a tenant key with its datastore. Re-registering a key
// replaces the previous datastore.
func (r *Registry) Register(key string, store Datastore) error {
	if key == "" {
		return fmt.Errorf("tenant key is required")
	}
	if store.Sites == nil || store.Items == nil {
		return fmt.Errorf("tenant %q datastore is incomplete", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[key] = store
	return nil
}

// Resolve returns the scope for a tenant key.
func (r *Registry) Resolve(key string) (Scope, error) {
	r.mu.RLock()
	store, ok := r.stores[key]
	r.mu.RUnlock()
	if !ok {
		return Scope{}, fmt.Errorf("unknown tenant %q", key)
	}
	return Scope{key: key, store: store}, nil
}

// RunScoped resolves the tenant and invokes fn with the scope. The scope is
// only valid for the duration of fn; callers must not retain it.
func (r *Registry) RunScoped(ctx context.Context, key string, fn func(ctx context.Context, scope Scope) error) error {
	scope, err := r.Resolve(key)
	if err != nil {
		return err
	}
	return fn(ctx, scope)
}
