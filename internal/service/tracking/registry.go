// internal/service/tracking/registry.go

package tracking

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps narrative names to stable ids. Lookup and create are atomic
// under a single lock, so concurrent first-use of a name yields exactly one
// id for the life of the process.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]string
	byID   map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]string),
		byID:   make(map[string]string),
	}
}

// ResolveOrCreate returns the id for name, minting one if the name is new.
// The second return reports whether the id was created by this call.
func (r *Registry) ResolveOrCreate(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		return id, false
	}

	id := uuid.New().String()
	r.byName[name] = id
	r.byID[id] = name
	return id, true
}

// IDOf returns the id registered for name, if any.
func (r *Registry) IDOf(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	return id, ok
}

// NameOf returns the name registered for id, if any.
func (r *Registry) NameOf(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byID[id]
	return name, ok
}
