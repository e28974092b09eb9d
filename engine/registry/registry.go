// Package registry provides the identifier-keyed concurrent maps that back scenes and materials.
package registry

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// registry is the implementation of the Registry interface.
type registry[V any] struct {
	mu   sync.RWMutex
	name string
	m    map[common.ID]V
}

// Registry is a thread-safe mapping from identifier to resource.
// Readers proceed concurrently; Set, Erase and Update exclude all other access.
type Registry[V any] interface {
	// Set stores v under id, replacing any previous value.
	//
	// Parameters:
	//   - id: the identifier key
	//   - v: the value to store
	Set(id common.ID, v V)

	// Get retrieves the value stored under id.
	//
	// Parameters:
	//   - id: the identifier key
	//
	// Returns:
	//   - V: the stored value
	//   - error: a NotFound error if id is not registered
	Get(id common.ID) (V, error)

	// GetOr retrieves the value stored under id, or def when id is not registered.
	//
	// Parameters:
	//   - id: the identifier key
	//   - def: the explicit default
	//
	// Returns:
	//   - V: the stored value or def
	GetOr(id common.ID, def V) V

	// Erase removes id.
	//
	// Parameters:
	//   - id: the identifier key
	//
	// Returns:
	//   - bool: true if an entry was removed
	Erase(id common.ID) bool

	// Snapshot returns a consistent copy of the registry for iteration.
	//
	// Returns:
	//   - map[common.ID]V: the copy
	Snapshot() map[common.ID]V

	// Update runs fn with exclusive access to the underlying map.
	// fn must not call back into the registry.
	//
	// Parameters:
	//   - fn: the mutation pass
	Update(fn func(m map[common.ID]V))

	// Len returns the number of entries.
	//
	// Returns:
	//   - int: the entry count
	Len() int
}

var _ Registry[int] = &registry[int]{}

// NewRegistry creates an empty Registry. The name is used in NotFound messages.
//
// Parameters:
//   - name: the kind of resource stored (e.g. "scene")
//
// Returns:
//   - Registry[V]: the new registry
func NewRegistry[V any](name string) Registry[V] {
	return &registry[V]{
		name: name,
		m:    make(map[common.ID]V),
	}
}

func (r *registry[V]) Set(id common.ID, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[id] = v
}

func (r *registry[V]) Get(id common.ID) (V, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[id]
	if !ok {
		var zero V
		return zero, status.Errorf(status.NotFound, "%s %d not found", r.name, id)
	}
	return v, nil
}

func (r *registry[V]) GetOr(id common.ID, def V) V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.m[id]; ok {
		return v
	}
	return def
}

func (r *registry[V]) Erase(id common.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[id]
	delete(r.m, id)
	return ok
}

func (r *registry[V]) Snapshot() map[common.ID]V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[common.ID]V, len(r.m))
	for k, v := range r.m {
		out[k] = v
	}
	return out
}

func (r *registry[V]) Update(fn func(m map[common.ID]V)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.m)
}

func (r *registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
