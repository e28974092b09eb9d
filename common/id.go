package common

import "sync/atomic"

// ID is an opaque process-unique handle for scenes, materials, bodies, cameras and lights.
// Zero is never issued and can be used as "no id".
type ID = uint64

// idCounter is the last issued identifier.
var idCounter atomic.Uint64

// NextID returns a new identifier. Identifiers increase monotonically and are
// never reused for the lifetime of the process, even after the entity they
// named has been destroyed.
//
// Returns:
//   - ID: the newly issued identifier
func NextID() ID {
	return idCounter.Add(1)
}
