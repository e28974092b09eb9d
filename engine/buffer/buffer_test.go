package buffer

import (
	"encoding/binary"
	"math"
	"runtime"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) gpu.Device {
	t.Helper()
	d, err := gpu.NewDevice(gpu.BackendTypeSoftware, gpu.WithLabel("buffer-test"))
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func requireExport(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("buffer export needs memfd")
	}
}

func TestParseType(t *testing.T) {
	et, err := ParseType("<f4")
	require.NoError(t, err)
	assert.Equal(t, byte('f'), et.Kind)
	assert.Equal(t, 4, et.Size)
	assert.Equal(t, binary.LittleEndian, et.ByteOrder)
	assert.Equal(t, "<f4", et.String())

	et, err = ParseType(">u2")
	require.NoError(t, err)
	assert.Equal(t, ">u2", et.String())

	for _, bad := range []string{"", "f4", "<x4", "<f3", "=i4", "<i"} {
		_, err := ParseType(bad)
		assert.Equal(t, status.InvalidArgument, status.CodeOf(err), bad)
	}
}

func TestComputeLayout(t *testing.T) {
	l, err := ComputeLayout([]SceneStats{
		{Index: 0, Cameras: []CameraSize{{64, 48}, {32, 24}}},
		{Index: 3, Cameras: []CameraSize{{64, 48}}},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, l.MaxSceneIndex)
	assert.Equal(t, 2, l.MaxCameraCount)
	assert.Equal(t, 1, l.MinCameraCount)
	assert.Equal(t, 64, l.MaxWidth)
	assert.Equal(t, 24, l.MinHeight)
	assert.Equal(t, []int{4, 2, 48, 64, 4}, l.Shape())
	assert.True(t, l.Contains(3, 1))
	assert.False(t, l.Contains(4, 0))
	assert.False(t, l.Contains(0, 2))
}

func TestComputeLayoutErrors(t *testing.T) {
	_, err := ComputeLayout(nil, nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = ComputeLayout([]SceneStats{{Index: 0}}, nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = ComputeLayout([]SceneStats{{Index: MaxSceneIndex, Cameras: []CameraSize{{1, 1}}}}, nil)
	assert.Equal(t, status.ResourceExhausted, status.CodeOf(err))

	_, err = ComputeLayout([]SceneStats{{Index: 0, Cameras: []CameraSize{{0, 10}}}}, nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = ComputeLayout([]SceneStats{{Index: 0, Cameras: []CameraSize{{MaxDimension, 10}}}}, nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestOffsetsAreDistinctAndContiguous(t *testing.T) {
	l := Layout{MaxSceneIndex: 2, MaxCameraCount: 3, MaxWidth: 8, MaxHeight: 4}
	stride := l.Stride(renderer.TargetColor)
	assert.Equal(t, uint64(8*4*4*4), stride)

	seen := make(map[uint64]bool)
	for s := 0; s <= l.MaxSceneIndex; s++ {
		for c := 0; c < l.MaxCameraCount; c++ {
			off := l.Offset(renderer.TargetColor, s, c)
			assert.False(t, seen[off])
			seen[off] = true
			assert.Equal(t, uint64(s*3+c)*stride, off)
			assert.LessOrEqual(t, off+stride, l.Size(renderer.TargetColor))
		}
	}
	assert.Len(t, seen, 9)
}

func TestAutoAllocateOnce(t *testing.T) {
	requireExport(t)
	a := NewAllocator(newTestDevice(t))
	assert.Nil(t, a.FillInfo(0, 0))

	stats := []SceneStats{{Index: 1, Cameras: []CameraSize{{16, 8}}}}
	bufs, err := a.AutoAllocate(stats, []string{"color", "Segmentation"})
	require.NoError(t, err)
	require.Len(t, bufs, 2)
	assert.Equal(t, "Color", bufs[0].Name)
	assert.Equal(t, "<f4", bufs[0].Type)
	assert.Equal(t, "<i4", bufs[1].Type)
	assert.Equal(t, []int{2, 1, 8, 16, 4}, bufs[0].Shape)
	assert.Equal(t, uint64(2*16*8*16), bufs[0].Buffer.Size())

	infos := a.FillInfo(1, 0)
	require.Len(t, infos, 2)
	assert.Equal(t, renderer.TargetSegmentation, infos[1].Target)
	assert.Equal(t, uint64(16*8*16), infos[0].Offset)
	assert.Nil(t, a.FillInfo(1, 1))

	_, err = a.AutoAllocate(stats, []string{"color"})
	assert.Equal(t, status.ResourceExhausted, status.CodeOf(err))
	assert.Len(t, a.Buffers(), 2)
}

func TestAutoAllocateRejectsBadInput(t *testing.T) {
	a := NewAllocator(newTestDevice(t))
	_, err := a.AutoAllocate([]SceneStats{{Index: 0, Cameras: []CameraSize{{4, 4}}}}, []string{"depth"})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = a.AutoAllocate([]SceneStats{{Index: 0}}, []string{"color"})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, ok := a.Layout()
	assert.False(t, ok)
}

func TestAllocateBuffer(t *testing.T) {
	requireExport(t)
	a := NewAllocator(newTestDevice(t))

	b, err := a.AllocateBuffer("<f4", []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(24), b.Buffer.Size())
	assert.Equal(t, uint64(24), b.Handle.Size)

	_, err = a.AllocateBuffer("<f4", nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	_, err = a.AllocateBuffer("<f4", []int{2, 0})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	_, err = a.AllocateBuffer("f4", []int{2})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestAllocateBufferRejectsOverflowingShape(t *testing.T) {
	a := NewAllocator(newTestDevice(t))

	_, err := a.AllocateBuffer("<f4", []int{math.MaxInt32, math.MaxInt32, math.MaxInt32})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	_, err = a.AllocateBuffer("<f8", []int{1 << 30, 1 << 30, 16})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestReaderSeesDeviceCopies(t *testing.T) {
	requireExport(t)
	d := newTestDevice(t)
	a := NewAllocator(d)
	bufs, err := a.AutoAllocate([]SceneStats{{Index: 0, Cameras: []CameraSize{{2, 2}, {2, 2}}}}, []string{"color"})
	require.NoError(t, err)
	layout, ok := a.Layout()
	require.True(t, ok)

	frame := make([]byte, layout.Stride(renderer.TargetColor))
	// pixel (y=1, x=0), channel 2
	binary.LittleEndian.PutUint32(frame[(2*4+2)*4:], math.Float32bits(0.75))

	info := a.FillInfo(0, 1)[0]
	cb := d.CreateCommandBuffer()
	require.NoError(t, cb.CopyToBuffer(frame, info.Buffer, info.Offset))
	tl := d.CreateTimeline(0)
	require.NoError(t, d.Submit(cb, tl, 1))
	reached, err := tl.Wait(1, gpu.Infinite)
	require.NoError(t, err)
	require.True(t, reached)

	r, err := OpenReader(bufs[0].Handle, layout, renderer.TargetColor)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, float32(0.75), r.Float32At(0, 1, 1, 0, 2))
	assert.Equal(t, float32(0), r.Float32At(0, 0, 1, 0, 2))
	assert.Len(t, r.Region(0, 1), int(layout.Stride(renderer.TargetColor)))
}
