package common

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDUniqueUnderConcurrency(t *testing.T) {
	const workers, perWorker = 8, 500
	ids := make(chan ID, workers*perWorker)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				ids <- NextID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[ID]bool, workers*perWorker)
	for id := range ids {
		require.NotZero(t, id)
		require.False(t, seen[id], "id %d issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)
}

func TestNextIDMonotonic(t *testing.T) {
	a := NextID()
	b := NextID()
	assert.Greater(t, b, a)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, 3, Coalesce(3, 4))
}

func TestCloneSlice(t *testing.T) {
	assert.Nil(t, CloneSlice[int](nil))
	src := []int{1, 2, 3}
	dst := CloneSlice(src)
	dst[0] = 9
	assert.Equal(t, 1, src[0])
}

func TestPoseInverseMatrix(t *testing.T) {
	p := NewPose([3]float32{1, 2, 3}, [4]float32{0.7071068, 0, 0.7071068, 0})
	m := p.Matrix().Mul4(p.InverseMatrix())
	assert.True(t, m.ApproxEqualThreshold(mgl32.Ident4(), 1e-5), "got %v", m)
}

func TestNewPoseZeroQuaternionIsIdentity(t *testing.T) {
	p := NewPose([3]float32{}, [4]float32{})
	assert.Equal(t, mgl32.QuatIdent(), p.Rotation)
	assert.True(t, p.Matrix().ApproxEqual(mgl32.Ident4()))
}

func TestModelMatrixAppliesScaleFirst(t *testing.T) {
	p := Pose{Position: mgl32.Vec3{0, 0, -5}, Rotation: mgl32.QuatIdent()}
	m := ModelMatrix(p, mgl32.Vec3{2, 2, 2})
	v := m.Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.InDelta(t, 2, v.X(), 1e-6)
	assert.InDelta(t, -5, v.Z(), 1e-6)
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes[float32](nil))
	b := SliceToBytes([]float32{1, 2})
	assert.Len(t, b, 8)
}

func TestPoseMulMatchesMatrixProduct(t *testing.T) {
	a := NewPose([3]float32{1, 2, 3}, [4]float32{0.7071068, 0, 0.7071068, 0})
	b := NewPose([3]float32{0, 0, -1}, [4]float32{0.7071068, 0.7071068, 0, 0})
	assert.True(t, a.Mul(b).Matrix().ApproxEqualThreshold(a.Matrix().Mul4(b.Matrix()), 1e-5))
}

func TestPoseWire(t *testing.T) {
	p, q := NewPose([3]float32{1, 2, 3}, [4]float32{2, 0, 0, 0}).Wire()
	assert.Equal(t, [3]float32{1, 2, 3}, p)
	assert.Equal(t, [4]float32{1, 0, 0, 0}, q)
}
