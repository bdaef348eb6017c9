// Package plugin discovers, activates and drives the lifecycle of
// optional modules. Plugins are compiled in and expose themselves
// through a factory registry; directory discovery maps on-disk manifests
// to registered factories rather than loading code at runtime.
package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/homebase-sh/homebase/pkg/types"
)

// Factory constructs a fresh plugin instance.
type Factory func() types.Plugin

// Registry maps plugin ids to factories. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given id. Registering the same id
// twice is an error.
func (r *Registry) Register(id string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("%w: %s", types.ErrDuplicatePlugin, id)
	}
	r.factories[id] = f
	return nil
}

// Factory returns the factory registered under id.
func (r *Registry) Factory(id string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[id]
	return f, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
