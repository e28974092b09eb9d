package registry

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// Liveness is implemented by values whose lifetime is owned elsewhere.
// Alive reports false once the last owner has released the value.
type Liveness interface {
	Alive() bool
}

// weakRegistry is the implementation of the WeakRegistry interface.
type weakRegistry[V Liveness] struct {
	inner *registry[V]
}

// WeakRegistry stores values it does not own. A value whose owner has released it
// behaves as absent on Get and is removed by the next Compact.
type WeakRegistry[V Liveness] interface {
	// Set stores a non-owning reference to v under id.
	//
	// Parameters:
	//   - id: the identifier key
	//   - v: the value to reference
	Set(id common.ID, v V)

	// Get retrieves the value under id if it is still alive.
	//
	// Parameters:
	//   - id: the identifier key
	//
	// Returns:
	//   - V: the live value
	//   - error: a NotFound error if id is unknown or its value has expired
	Get(id common.ID) (V, error)

	// Compact removes every entry whose value is no longer alive.
	//
	// Returns:
	//   - int: the number of removed entries
	Compact() int

	// Len returns the number of entries, including expired ones not yet compacted.
	//
	// Returns:
	//   - int: the entry count
	Len() int
}

var _ WeakRegistry[Liveness] = &weakRegistry[Liveness]{}

// NewWeakRegistry creates an empty WeakRegistry.
//
// Parameters:
//   - name: the kind of resource referenced
//
// Returns:
//   - WeakRegistry[V]: the new registry
func NewWeakRegistry[V Liveness](name string) WeakRegistry[V] {
	return &weakRegistry[V]{
		inner: &registry[V]{name: name, m: make(map[common.ID]V)},
	}
}

func (w *weakRegistry[V]) Set(id common.ID, v V) {
	w.inner.Set(id, v)
}

func (w *weakRegistry[V]) Get(id common.ID) (V, error) {
	v, err := w.inner.Get(id)
	if err != nil {
		return v, err
	}
	if !v.Alive() {
		var zero V
		return zero, status.Errorf(status.NotFound, "%s %d expired", w.inner.name, id)
	}
	return v, nil
}

func (w *weakRegistry[V]) Compact() int {
	removed := 0
	w.inner.Update(func(m map[common.ID]V) {
		for id, v := range m {
			if !v.Alive() {
				delete(m, id)
				removed++
			}
		}
	})
	return removed
}

func (w *weakRegistry[V]) Len() int {
	return w.inner.Len()
}
