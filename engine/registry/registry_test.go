package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetMissingIsNotFound(t *testing.T) {
	r := NewRegistry[string]("scene")
	_, err := r.Get(42)
	require.Error(t, err)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
	assert.Contains(t, err.Error(), "scene 42")
	assert.Equal(t, "fallback", r.GetOr(42, "fallback"))
}

func TestRegistrySetGetErase(t *testing.T) {
	r := NewRegistry[int]("material")
	r.Set(1, 10)
	r.Set(2, 20)
	v, err := r.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, r.Len())

	assert.True(t, r.Erase(1))
	assert.False(t, r.Erase(1))
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry[int]("x")
	r.Set(1, 1)
	snap := r.Snapshot()
	snap[2] = 2
	r.Set(3, 3)
	assert.Len(t, snap, 2)
	assert.Equal(t, 2, r.Len())
	_, inSnap := snap[3]
	assert.False(t, inSnap)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry[common.ID]("x")
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				id := common.ID(w*1000 + i)
				r.Set(id, id)
				got, err := r.Get(id)
				if assert.NoError(t, err) {
					assert.Equal(t, id, got)
				}
				_ = r.Snapshot()
				if i%2 == 0 {
					r.Erase(id)
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8*100, r.Len())
}

type liveValue struct {
	alive atomic.Bool
}

func (l *liveValue) Alive() bool { return l.alive.Load() }

func TestWeakRegistryExpiry(t *testing.T) {
	w := NewWeakRegistry[*liveValue]("material")
	a, b := &liveValue{}, &liveValue{}
	a.alive.Store(true)
	b.alive.Store(true)
	w.Set(1, a)
	w.Set(2, b)

	got, err := w.Get(1)
	require.NoError(t, err)
	assert.Same(t, a, got)

	a.alive.Store(false)
	_, err = w.Get(1)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
	assert.Equal(t, 2, w.Len())

	assert.Equal(t, 1, w.Compact())
	assert.Equal(t, 1, w.Len())
	_, err = w.Get(2)
	assert.NoError(t, err)
	assert.Equal(t, 0, w.Compact())
}
