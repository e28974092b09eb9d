package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFloat(b []byte, w, x, y, ch int) float32 {
	o := ((y*w+x)*TargetChannels + ch) * TargetElemSize
	return math.Float32frombits(binary.LittleEndian.Uint32(b[o:]))
}

func readInt(b []byte, w, x, y, ch int) int32 {
	o := ((y*w+x)*TargetChannels + ch) * TargetElemSize
	return int32(binary.LittleEndian.Uint32(b[o:]))
}

func testView(t *testing.T, w, h int, pose common.Pose) camera.View {
	t.Helper()
	c, err := camera.NewCamera(camera.WithSize(w, h), camera.WithPose(pose))
	require.NoError(t, err)
	return c.View()
}

func boxItem(seg0, seg1 int32) DrawItem {
	return DrawItem{
		World:        mgl32.Ident4(),
		Mesh:         model.CreateCube(),
		Material:     material.NewMaterial().Snapshot(),
		Segmentation: [4]int32{seg0, seg1, 0, 0},
	}
}

func TestRenderFromInsideBoxCoversEveryPixel(t *testing.T) {
	r, err := NewRenderer(WithSize(32, 24))
	require.NoError(t, err)

	frame := Frame{
		View:     testView(t, 32, 24, common.IdentityPose()),
		Items:    []DrawItem{boxItem(7, 9)},
		Lighting: Lighting{Ambient: mgl32.Vec3{0.5, 0.5, 0.5}},
	}
	require.NoError(t, r.Render(frame))

	color := r.Target(TargetColor)
	seg := r.Target(TargetSegmentation)
	pos := r.Target(TargetPosition)
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			require.Equal(t, float32(1), readFloat(color, 32, x, y, 3), "alpha at %d,%d", x, y)
			require.InDelta(t, 0.5, readFloat(color, 32, x, y, 0), 1e-5)
			require.Equal(t, int32(7), readInt(seg, 32, x, y, 0))
			require.Equal(t, int32(9), readInt(seg, 32, x, y, 1))
			require.Equal(t, float32(1), readFloat(pos, 32, x, y, 3))
		}
	}
	assert.InDelta(t, -1, readFloat(pos, 32, 16, 12, 2), 0.05)
}

func TestRenderBoxInFrontOfCamera(t *testing.T) {
	r, err := NewRenderer(WithSize(64, 48))
	require.NoError(t, err)

	sun := light.NewLight(light.LightTypeDirectional, light.WithDirection([3]float32{0, 0, -1}))
	frame := Frame{
		View:     testView(t, 64, 48, common.NewPose([3]float32{0, 0, 5}, [4]float32{1, 0, 0, 0})),
		Items:    []DrawItem{boxItem(3, 0)},
		Lighting: Lighting{Lights: []light.Light{sun}},
	}
	require.NoError(t, r.Render(frame))

	color := r.Target(TargetColor)
	pos := r.Target(TargetPosition)
	assert.InDelta(t, -4, readFloat(pos, 64, 32, 24, 2), 1e-3)
	assert.InDelta(t, 1, readFloat(color, 64, 32, 24, 0), 1e-5)
	assert.Equal(t, int32(3), readInt(r.Target(TargetSegmentation), 64, 32, 24, 0))

	// The box spans fy*1/4 = 12 pixels from the center; corners stay empty.
	assert.Zero(t, readFloat(color, 64, 0, 0, 3))
	assert.Zero(t, readFloat(pos, 64, 0, 0, 3))
}

func TestInvisibleItemsAreSkipped(t *testing.T) {
	r, err := NewRenderer(WithSize(8, 8))
	require.NoError(t, err)
	item := boxItem(1, 1)
	item.Transparency = 1
	require.NoError(t, r.Render(Frame{View: testView(t, 8, 8, common.IdentityPose()), Items: []DrawItem{item}}))
	for _, b := range r.Target(TargetSegmentation) {
		require.Zero(t, b)
	}
}

func TestRenderRejectsMismatchedViewAndClears(t *testing.T) {
	r, err := NewRenderer(WithSize(8, 8))
	require.NoError(t, err)
	require.NoError(t, r.Render(Frame{View: testView(t, 8, 8, common.IdentityPose()), Items: []DrawItem{boxItem(1, 1)}}))

	err = r.Render(Frame{View: testView(t, 4, 4, common.IdentityPose())})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	for _, b := range r.Target(TargetColor) {
		require.Zero(t, b)
	}
}

func TestBandedRenderMatchesSingleBand(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Stop()

	single, err := NewRenderer(WithSize(40, 30))
	require.NoError(t, err)
	banded, err := NewRenderer(WithSize(40, 30), WithWorkerPool(pool, 4))
	require.NoError(t, err)

	sphere := DrawItem{
		World:        mgl32.Translate3D(0.3, -0.2, 0).Mul4(mgl32.Scale3D(1.5, 1, 1)),
		Mesh:         model.CreateUVSphere(32, 16),
		Material:     material.NewMaterial(material.WithBaseColor([4]float32{1, 0, 0, 1})).Snapshot(),
		Segmentation: [4]int32{2, 5, 0, 0},
	}
	frame := Frame{
		View:     testView(t, 40, 30, common.NewPose([3]float32{0, 0, 4}, [4]float32{1, 0, 0, 0})),
		Items:    []DrawItem{sphere},
		Lighting: Lighting{Ambient: mgl32.Vec3{1, 1, 1}},
	}
	require.NoError(t, single.Render(frame))
	require.NoError(t, banded.Render(frame))
	for _, tgt := range AllTargets {
		assert.Equal(t, single.Target(tgt), banded.Target(tgt), tgt.String())
	}
}

func TestParseTarget(t *testing.T) {
	for name, want := range map[string]Target{"color": TargetColor, "Position": TargetPosition, "segmentation": TargetSegmentation} {
		got, err := ParseTarget(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseTarget("depth")
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	assert.Equal(t, "<i4", TargetSegmentation.TypeString())
	assert.Equal(t, "<f4", TargetColor.TypeString())
}
