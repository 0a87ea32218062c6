// Package provider holds the registry of text-generation backends and the
// prompt shared by all of them.
package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/articlegen/internal/article"
)

// Registry maps provider selectors to implementations.
type Registry struct {
	mu        sync.RWMutex
	providers map[article.ProviderName]article.Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[article.ProviderName]article.Provider)}
}

// Register adds or replaces the provider for name.
func (r *Registry) Register(name article.ProviderName, p article.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get returns the provider registered for name.
func (r *Registry) Get(name article.ProviderName) (article.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Known reports whether name has a registered provider.
func (r *Registry) Known(name article.ProviderName) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Names lists registered selectors in sorted order.
func (r *Registry) Names() []article.ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]article.ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
