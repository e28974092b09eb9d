package scene

import "sync"

// SlotTable maps scene indices to live scenes. A slot is cleared only by the
// scene that occupies it, so a scene recreated at the same index is never
// evicted by the removal of its predecessor.
type SlotTable struct {
	mu    sync.RWMutex
	slots []Scene
}

// NewSlotTable creates an empty SlotTable.
//
// Returns:
//   - *SlotTable: the table
func NewSlotTable() *SlotTable {
	return &SlotTable{}
}

// Put stores s at index, growing the table as needed. An existing occupant is replaced.
func (t *SlotTable) Put(index int, s Scene) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index >= len(t.slots) {
		grown := make([]Scene, index+1)
		copy(grown, t.slots)
		t.slots = grown
	}
	t.slots[index] = s
}

// Clear empties the slot at index if it still holds s.
//
// Returns:
//   - bool: true if the slot was cleared
func (t *SlotTable) Clear(index int, s Scene) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.slots) || t.slots[index] != s {
		return false
	}
	t.slots[index] = nil
	return true
}

// Get returns the scene at index.
//
// Returns:
//   - Scene: the scene, nil if the slot is empty or out of range
//   - bool: whether a scene was found
func (t *SlotTable) Get(index int) (Scene, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.slots) || t.slots[index] == nil {
		return nil, false
	}
	return t.slots[index], true
}

// Len returns the number of slots, empty ones included.
func (t *SlotTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Live returns the occupied slots in index order.
func (t *SlotTable) Live() []Scene {
	t.mu.RLock()
	defer t.mu.RUnlock()
	live := make([]Scene, 0, len(t.slots))
	for _, s := range t.slots {
		if s != nil {
			live = append(live, s)
		}
	}
	return live
}
