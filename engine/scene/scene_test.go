package scene

import (
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) gpu.Device {
	t.Helper()
	d, err := gpu.NewDevice(gpu.BackendTypeSoftware, gpu.WithLabel("scene-test"))
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func newTestScene(t *testing.T, d gpu.Device, options ...SceneBuilderOption) Scene {
	t.Helper()
	options = append([]SceneBuilderOption{
		WithDevice(d),
		WithFatalHandler(func(format string, args ...any) { t.Errorf(format, args...) }),
	}, options...)
	s, err := NewScene(options...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCamera(t *testing.T, w, h int) (camera.Camera, renderer.Renderer) {
	t.Helper()
	cam, err := camera.NewCamera(camera.WithSize(w, h))
	require.NoError(t, err)
	r, err := renderer.NewRenderer(renderer.WithSize(w, h))
	require.NoError(t, err)
	return cam, r
}

// fakeRenderer fills its targets with 0xFF and then fails, or panics when asked to.
type fakeRenderer struct {
	mu     sync.Mutex
	w, h   int
	panics bool
	data   []byte
}

func newFakeRenderer(w, h int, panics bool) *fakeRenderer {
	return &fakeRenderer{w: w, h: h, panics: panics, data: make([]byte, w*h*renderer.TargetChannels*renderer.TargetElemSize)}
}

func (f *fakeRenderer) Width() int        { return f.w }
func (f *fakeRenderer) Height() int       { return f.h }
func (f *fakeRenderer) ShaderDir() string { return "" }

func (f *fakeRenderer) Render(renderer.Frame) error {
	f.mu.Lock()
	for i := range f.data {
		f.data[i] = 0xFF
	}
	f.mu.Unlock()
	if f.panics {
		panic("broken pipeline")
	}
	return status.Errorf(status.Internal, "broken pipeline")
}

func (f *fakeRenderer) Target(renderer.Target) []byte { return f.data }

func (f *fakeRenderer) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.data)
}

// staticFill resolves every camera to one region per camera index of a single buffer.
type staticFill struct {
	buf    gpu.Buffer
	stride uint64
}

func (s staticFill) FillInfo(sceneIndex, cameraIndex int) []buffer.FillInfo {
	return []buffer.FillInfo{{
		Target: renderer.TargetColor,
		Buffer: s.buf,
		Offset: uint64(cameraIndex) * s.stride,
		Size:   s.stride,
	}}
}

func waitScene(t *testing.T, d gpu.Device, s Scene) {
	t.Helper()
	timelines, values := s.Pending()
	res, err := d.WaitTimelines(timelines, values, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, gpu.WaitSuccess, res)
}

func TestNewSceneValidation(t *testing.T) {
	_, err := NewScene()
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	d := newTestDevice(t)
	_, err = NewScene(WithDevice(d), WithIndex(MaxSceneIndex))
	assert.Equal(t, status.ResourceExhausted, status.CodeOf(err))

	_, err = NewScene(WithDevice(d), WithIndex(-1))
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	s := newTestScene(t, d, WithIndex(3))
	assert.Equal(t, 3, s.Index())
	assert.NotZero(t, s.ID())
	assert.Equal(t, DefaultAmbientLight, s.AmbientLight())
}

func TestSlotTableNeverKeepsStaleScene(t *testing.T) {
	d := newTestDevice(t)
	first := newTestScene(t, d, WithIndex(2))
	second := newTestScene(t, d, WithIndex(2))

	table := NewSlotTable()
	table.Put(2, first)
	assert.Equal(t, 3, table.Len())
	_, ok := table.Get(0)
	assert.False(t, ok)

	table.Put(2, second)
	assert.False(t, table.Clear(2, first))
	got, ok := table.Get(2)
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, table.Clear(2, second))
	_, ok = table.Get(2)
	assert.False(t, ok)
	assert.Empty(t, table.Live())
	_, ok = table.Get(99)
	assert.False(t, ok)
}

func TestFrameCounterAndOrdering(t *testing.T) {
	d := newTestDevice(t)
	var mu sync.Mutex
	var frames []uint64
	s := newTestScene(t, d, WithObserver(func(r FrameResult) {
		mu.Lock()
		defer mu.Unlock()
		frames = append(frames, r.Frame)
	}))

	cam, r := newTestCamera(t, 8, 6)
	e, err := s.AddCamera(common.NextID(), cam, r)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Index())
	assert.Equal(t, uint64(0), e.FrameCounter())

	for i := 1; i <= 20; i++ {
		require.NoError(t, s.TakePicture(e.ID()))
		assert.Equal(t, uint64(i), e.FrameCounter())
	}
	waitScene(t, d, s)
	assert.Equal(t, uint64(20), e.Timeline().Value())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, frames, 20)
	for i, f := range frames {
		assert.Equal(t, uint64(i+1), f)
	}
}

func TestTakePictureUnknownCamera(t *testing.T) {
	s := newTestScene(t, newTestDevice(t))
	err := s.TakePicture(12345)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestAddCameraRejectsMismatchedRenderer(t *testing.T) {
	s := newTestScene(t, newTestDevice(t))
	cam, _ := newTestCamera(t, 8, 6)
	_, r := newTestCamera(t, 4, 4)
	_, err := s.AddCamera(common.NextID(), cam, r)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestEntityOrderAndPoses(t *testing.T) {
	s := newTestScene(t, newTestDevice(t))
	a := game_object.NewGameObject()
	b := game_object.NewGameObject()
	s.AddObject(a)
	s.AddObject(b)
	cam, r := newTestCamera(t, 4, 4)
	e, err := s.AddCamera(common.NextID(), cam, r)
	require.NoError(t, err)

	err = s.SetEntityOrder([]common.ID{a.ID(), 999}, nil)
	assert.Equal(t, status.NotFound, status.CodeOf(err))

	require.NoError(t, s.SetEntityOrder([]common.ID{b.ID(), a.ID()}, []common.ID{e.ID()}))
	pa := common.NewPose([3]float32{1, 2, 3}, [4]float32{1, 0, 0, 0})
	pb := common.NewPose([3]float32{4, 5, 6}, [4]float32{0, 1, 0, 0})
	pc := common.NewPose([3]float32{0, 0, 5}, [4]float32{1, 0, 0, 0})

	err = s.UpdatePoses([]common.Pose{pb}, []common.Pose{pc})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	assert.Equal(t, common.IdentityPose(), b.Pose())

	err = s.UpdatePoses([]common.Pose{pb, pa}, nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	assert.Equal(t, common.IdentityPose(), b.Pose())

	require.NoError(t, s.UpdatePoses([]common.Pose{pb, pa}, []common.Pose{pc}))
	assert.Equal(t, pb, b.Pose())
	assert.Equal(t, pa, a.Pose())
	assert.Equal(t, pc, cam.Pose())

	// bodies added after ordering are not addressed
	s.AddObject(game_object.NewGameObject())
	require.NoError(t, s.UpdatePoses([]common.Pose{pa, pb}, []common.Pose{pc}))
	assert.Equal(t, pa, b.Pose())
}

func TestUpdateAndTakePicturesIsAllOrNothing(t *testing.T) {
	s := newTestScene(t, newTestDevice(t))
	cam, r := newTestCamera(t, 4, 4)
	e, err := s.AddCamera(common.NextID(), cam, r)
	require.NoError(t, err)
	require.NoError(t, s.SetEntityOrder(nil, []common.ID{e.ID()}))

	pose := common.NewPose([3]float32{0, 1, 0}, [4]float32{1, 0, 0, 0})
	err = s.UpdateAndTakePictures(nil, []common.Pose{pose}, []common.ID{e.ID(), 777})
	assert.Equal(t, status.NotFound, status.CodeOf(err))
	assert.Equal(t, uint64(0), e.FrameCounter())
	assert.Equal(t, common.IdentityPose(), cam.Pose())

	require.NoError(t, s.UpdateAndTakePictures(nil, []common.Pose{pose}, []common.ID{e.ID(), e.ID()}))
	assert.Equal(t, uint64(2), e.FrameCounter())
	assert.Equal(t, pose, cam.Pose())
}

func TestFailedRenderIsZeroFilled(t *testing.T) {
	for _, panics := range []bool{false, true} {
		d := newTestDevice(t)
		fake := newFakeRenderer(4, 2, panics)
		stride := uint64(len(fake.data))
		dst, err := d.CreateBuffer("dst", stride*2, false)
		require.NoError(t, err)
		for i := range dst.Bytes() {
			dst.Bytes()[i] = 0xAA
		}

		var results []FrameResult
		var mu sync.Mutex
		s := newTestScene(t, d,
			WithFillInfoSource(staticFill{buf: dst, stride: stride}),
			WithObserver(func(r FrameResult) {
				mu.Lock()
				defer mu.Unlock()
				results = append(results, r)
			}))

		cam, _ := newTestCamera(t, 4, 2)
		e, err := s.AddCamera(common.NextID(), cam, fake)
		require.NoError(t, err)
		require.Len(t, e.FillInfo(), 1)

		require.NoError(t, s.TakePicture(e.ID()))
		waitScene(t, d, s)

		assert.Equal(t, make([]byte, stride), dst.Bytes()[:stride])
		// the second camera region is untouched
		assert.Equal(t, byte(0xAA), dst.Bytes()[stride])

		mu.Lock()
		require.Len(t, results, 1)
		assert.Error(t, results[0].Err)
		mu.Unlock()
	}
}

func TestRefreshFillInfo(t *testing.T) {
	d := newTestDevice(t)
	s := newTestScene(t, d)
	cam, r := newTestCamera(t, 4, 4)
	e0, err := s.AddCamera(common.NextID(), cam, r)
	require.NoError(t, err)
	assert.Empty(t, e0.FillInfo())

	dst, err := d.CreateBuffer("dst", 4*4*16*2, false)
	require.NoError(t, err)
	s.RefreshFillInfo(staticFill{buf: dst, stride: 4 * 4 * 16})
	require.Len(t, e0.FillInfo(), 1)

	cam1, r1 := newTestCamera(t, 4, 4)
	e1, err := s.AddCamera(common.NextID(), cam1, r1)
	require.NoError(t, err)
	require.Len(t, e1.FillInfo(), 1)
	assert.Equal(t, uint64(4*4*16), e1.FillInfo()[0].Offset)

	stats := s.Stats()
	assert.Equal(t, []buffer.CameraSize{{Width: 4, Height: 4}, {Width: 4, Height: 4}}, stats.Cameras)
}

func TestMaterialIDsGeneratedOnce(t *testing.T) {
	s := newTestScene(t, newTestDevice(t))
	obj := game_object.NewGameObject()
	s.AddObject(obj)

	calls := 0
	gen := func(game_object.GameObject) []common.ID {
		calls++
		return []common.ID{common.NextID()}
	}
	first, err := s.MaterialIDs(obj.ID(), gen)
	require.NoError(t, err)
	second, err := s.MaterialIDs(obj.ID(), gen)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	_, err = s.MaterialIDs(424242, gen)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestRemoveObjectAndClose(t *testing.T) {
	d := newTestDevice(t)
	s := newTestScene(t, d)

	kept := material.NewMaterial()
	removed := material.NewMaterial()
	a := game_object.NewGameObject(game_object.WithModel(model.NewModel(model.WithMesh(model.CreateCube(), kept))))
	b := game_object.NewGameObject(game_object.WithModel(model.NewModel(model.WithMesh(model.CreateCube(), removed))))
	s.AddObject(a)
	s.AddObject(b)
	s.SetMaterialIDs(b.ID(), []common.ID{common.NextID()})

	require.NoError(t, s.RemoveObject(b.ID()))
	assert.False(t, removed.Alive())
	assert.Equal(t, status.NotFound, status.CodeOf(s.RemoveObject(b.ID())))
	assert.Equal(t, 1, s.ObjectCount())

	cam, r := newTestCamera(t, 4, 4)
	e, err := s.AddCamera(common.NextID(), cam, r)
	require.NoError(t, err)
	require.NoError(t, s.TakePicture(e.ID()))
	require.NoError(t, s.TakePicture(e.ID()))

	require.NoError(t, s.Close())
	assert.Equal(t, uint64(2), e.Timeline().Value())
	assert.False(t, kept.Alive())
	assert.Equal(t, status.NotFound, status.CodeOf(s.TakePicture(e.ID())))
	require.NoError(t, s.Close())
}
