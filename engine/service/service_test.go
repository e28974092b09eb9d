package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleOBJ = `o tri
v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`

func newTestService(t *testing.T, options ...RenderServiceBuilderOption) (RenderService, gpu.Device) {
	t.Helper()
	d, err := gpu.NewDevice(gpu.BackendTypeSoftware, gpu.WithLabel("service-test"))
	require.NoError(t, err)
	options = append([]RenderServiceBuilderOption{
		WithDevice(d),
		WithFatalHandler(func(format string, args ...any) { t.Errorf(format, args...) }),
	}, options...)
	svc, err := NewRenderService(options...)
	require.NoError(t, err)
	t.Cleanup(func() {
		svc.Close()
		d.Release()
	})
	return svc, d
}

func writeOBJ(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tri.obj")
	require.NoError(t, os.WriteFile(path, []byte(triangleOBJ), 0o644))
	return path
}

func TestNewRenderServiceRequiresDevice(t *testing.T) {
	_, err := NewRenderService()
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestSceneLifecycle(t *testing.T) {
	svc, _ := newTestService(t)

	id, err := svc.CreateScene(3)
	require.NoError(t, err)
	sc, ok := svc.SceneAt(3)
	require.True(t, ok)
	assert.Equal(t, id, sc.ID())
	assert.Equal(t, "Scene     1\nMaterials 0\n", svc.Summary())

	_, err = svc.CreateScene(-1)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	_, err = svc.CreateScene(1024)
	assert.Equal(t, status.ResourceExhausted, status.CodeOf(err))

	require.NoError(t, svc.RemoveScene(id))
	_, ok = svc.SceneAt(3)
	assert.False(t, ok)
	assert.Empty(t, svc.Scenes())
	assert.Equal(t, status.NotFound, status.CodeOf(svc.RemoveScene(id)))
}

func TestRemoveSceneKeepsReplacementSlot(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.CreateScene(0)
	require.NoError(t, err)
	second, err := svc.CreateScene(0)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveScene(first))
	sc, ok := svc.SceneAt(0)
	require.True(t, ok)
	assert.Equal(t, second, sc.ID())
}

func TestMaterials(t *testing.T) {
	svc, _ := newTestService(t)

	id, err := svc.CreateMaterial()
	require.NoError(t, err)
	require.NoError(t, svc.SetBaseColor(id, [4]float32{1, 0, 0, 1}))
	require.NoError(t, svc.SetRoughness(id, 0.2))
	require.NoError(t, svc.SetSpecular(id, 0.7))
	require.NoError(t, svc.SetMetallic(id, 0.9))
	assert.Equal(t, "Scene     0\nMaterials 1\n", svc.Summary())

	require.NoError(t, svc.RemoveMaterial(id))
	assert.Equal(t, status.NotFound, status.CodeOf(svc.SetBaseColor(id, [4]float32{})))
	assert.NoError(t, svc.RemoveMaterial(id))
	assert.NoError(t, svc.RemoveMaterial(999999))
}

func TestAddBodyPrimitive(t *testing.T) {
	svc, _ := newTestService(t)
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)
	matID, err := svc.CreateMaterial()
	require.NoError(t, err)

	_, err = svc.AddBodyPrimitive(AddBodyPrimitiveRequest{SceneID: sceneID, Type: "torus", Material: matID})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	_, err = svc.AddBodyPrimitive(AddBodyPrimitiveRequest{SceneID: sceneID, Type: "box", Material: 424242})
	assert.Equal(t, status.NotFound, status.CodeOf(err))
	_, err = svc.AddBodyPrimitive(AddBodyPrimitiveRequest{SceneID: 424242, Type: "box", Material: matID})
	assert.Equal(t, status.NotFound, status.CodeOf(err))

	boxID, err := svc.AddBodyPrimitive(AddBodyPrimitiveRequest{
		SceneID:       sceneID,
		Type:          "box",
		Scale:         [3]float32{2, 3, 4},
		Material:      matID,
		Segmentation0: 7,
		Segmentation1: 8,
	})
	require.NoError(t, err)

	n, err := svc.GetShapeCount(sceneID, boxID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shapeMat, err := svc.GetShapeMaterial(sceneID, boxID, 0)
	require.NoError(t, err)
	assert.Equal(t, matID, shapeMat)
	_, err = svc.GetShapeMaterial(sceneID, boxID, 1)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	sc, err := svc.Scene(sceneID)
	require.NoError(t, err)
	box, err := sc.Object(boxID)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{2, 3, 4}, box.Scale())
	assert.Equal(t, [4]uint32{7, 8, 0, 0}, box.Segmentation())

	capsuleID, err := svc.AddBodyPrimitive(AddBodyPrimitiveRequest{
		SceneID:  sceneID,
		Type:     "Capsule",
		Scale:    [3]float32{0.5, 0.25, 1},
		Material: matID,
	})
	require.NoError(t, err)
	capsule, err := sc.Object(capsuleID)
	require.NoError(t, err)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, capsule.Scale())

	require.NoError(t, svc.SetVisibility(sceneID, boxID, 0.25))
	assert.InDelta(t, 0.75, box.Transparency(), 1e-6)

	// The body keeps the material alive after the service lets go of it.
	require.NoError(t, svc.RemoveMaterial(matID))
	assert.Len(t, box.DrawItems(), 1)
}

func TestAddBodyMeshShapeMaterials(t *testing.T) {
	svc, _ := newTestService(t)
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)

	_, err = svc.AddBodyMesh(AddBodyMeshRequest{SceneID: sceneID, Filename: filepath.Join(t.TempDir(), "missing.obj")})
	assert.Equal(t, status.NotFound, status.CodeOf(err))

	path := writeOBJ(t)
	bodyID, err := svc.AddBodyMesh(AddBodyMeshRequest{SceneID: sceneID, Filename: path, Segmentation0: 1})
	require.NoError(t, err)
	otherID, err := svc.AddBodyMesh(AddBodyMeshRequest{SceneID: sceneID, Filename: path})
	require.NoError(t, err)

	first, err := svc.GetShapeMaterial(sceneID, bodyID, 0)
	require.NoError(t, err)
	again, err := svc.GetShapeMaterial(sceneID, bodyID, 0)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	other, err := svc.GetShapeMaterial(sceneID, otherID, 0)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)

	require.NoError(t, svc.SetBaseColor(first, [4]float32{0, 1, 0, 1}))

	sc, err := svc.Scene(sceneID)
	require.NoError(t, err)
	body, err := sc.Object(bodyID)
	require.NoError(t, err)
	shape, err := body.Model().Shape(0)
	require.NoError(t, err)
	assert.Equal(t, [4]float32{0, 1, 0, 1}, shape.Material.BaseColor())

	otherBody, err := sc.Object(otherID)
	require.NoError(t, err)
	otherShape, err := otherBody.Model().Shape(0)
	require.NoError(t, err)
	assert.NotEqual(t, [4]float32{0, 1, 0, 1}, otherShape.Material.BaseColor())

	require.NoError(t, svc.RemoveBody(sceneID, bodyID))
	assert.Equal(t, status.NotFound, status.CodeOf(svc.SetBaseColor(first, [4]float32{1, 1, 1, 1})))
	assert.NoError(t, svc.SetBaseColor(other, [4]float32{1, 1, 1, 1}))
	assert.Equal(t, status.NotFound, status.CodeOf(svc.RemoveBody(sceneID, bodyID)))
}

func TestAddCamera(t *testing.T) {
	shaders := t.TempDir()
	svc, _ := newTestService(t, WithShaderDir(shaders))
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)

	_, err = svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: 0, Height: 4})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: 4, Height: 4, Shader: filepath.Join(shaders, "missing")})
	assert.Equal(t, status.Internal, status.CodeOf(err))

	camID, err := svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: 8, Height: 6})
	require.NoError(t, err)

	sc, err := svc.Scene(sceneID)
	require.NoError(t, err)
	entry, err := sc.Camera(camID)
	require.NoError(t, err)
	assert.Equal(t, shaders, entry.Renderer().ShaderDir())
	assert.Equal(t, 0, entry.Index())

	require.NoError(t, svc.SetCameraParameters(CameraParamsRequest{
		SceneID: sceneID, CameraID: camID,
		Near: 0.5, Far: 50, Fx: 10, Fy: 10, Cx: 4, Cy: 3,
	}))
	assert.Equal(t, 8, entry.Camera().Width())
	assert.Equal(t, float32(0.5), entry.Camera().Intrinsics().Near)

	err = svc.SetCameraParameters(CameraParamsRequest{SceneID: sceneID, CameraID: 424242})
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestAddCameraRejectsBadSizeWithoutChange(t *testing.T) {
	svc, _ := newTestService(t)
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)
	_, err = svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: 4, Height: 4})
	require.NoError(t, err)

	sc, err := svc.Scene(sceneID)
	require.NoError(t, err)

	tests := []struct {
		name          string
		width, height int
	}{
		{"too wide", camera.MaxDimension, 1},
		{"too tall", 1, camera.MaxDimension},
		{"zero width", 0, 8},
		{"negative height", 8, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: tt.width, Height: tt.height})
			assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
			assert.Len(t, sc.Cameras(), 1)
		})
	}

	camID, err := svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: 4, Height: 4})
	require.NoError(t, err)
	entry, err := sc.Camera(camID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Index())
}

func TestLights(t *testing.T) {
	svc, _ := newTestService(t)
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)

	require.NoError(t, svc.SetAmbientLight(sceneID, [3]float32{0.1, 0.2, 0.3}))
	pointID, err := svc.AddPointLight(AddPointLightRequest{SceneID: sceneID, Position: [3]float32{0, 5, 0}, Color: [3]float32{1, 1, 1}, Shadow: true})
	require.NoError(t, err)
	dirID, err := svc.AddDirectionalLight(AddDirectionalLightRequest{SceneID: sceneID, Direction: [3]float32{0, -1, 0}, Color: [3]float32{1, 1, 1}})
	require.NoError(t, err)
	assert.NotEqual(t, pointID, dirID)

	sc, err := svc.Scene(sceneID)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, sc.AmbientLight())
	require.Len(t, sc.Lights(), 2)
	assert.True(t, sc.Lights()[0].Shadow().Enabled)

	assert.Equal(t, status.NotFound, status.CodeOf(svc.SetAmbientLight(424242, [3]float32{})))
}

func TestOrderedPosesAndPictures(t *testing.T) {
	svc, d := newTestService(t)
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)
	matID, err := svc.CreateMaterial()
	require.NoError(t, err)
	bodyID, err := svc.AddBodyPrimitive(AddBodyPrimitiveRequest{SceneID: sceneID, Type: "sphere", Scale: [3]float32{1, 1, 1}, Material: matID})
	require.NoError(t, err)
	camID, err := svc.AddCamera(AddCameraRequest{SceneID: sceneID, Width: 16, Height: 12})
	require.NoError(t, err)

	require.NoError(t, svc.SetEntityOrder(sceneID, []common.ID{bodyID}, []common.ID{camID}))

	err = svc.UpdateRender(sceneID, nil, []common.Pose{common.IdentityPose()})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	bodyPose := common.NewPose([3]float32{0, 0, -5}, [4]float32{1, 0, 0, 0})
	require.NoError(t, svc.UpdateRender(sceneID, []common.Pose{bodyPose}, []common.Pose{common.IdentityPose()}))

	sc, err := svc.Scene(sceneID)
	require.NoError(t, err)
	body, err := sc.Object(bodyID)
	require.NoError(t, err)
	assert.Equal(t, bodyPose.Position, body.Pose().Position)

	require.NoError(t, svc.TakePicture(sceneID, camID))
	require.NoError(t, svc.UpdateRenderAndTakePictures(sceneID, []common.Pose{bodyPose}, []common.Pose{common.IdentityPose()}, []common.ID{camID}))
	assert.Equal(t, status.NotFound, status.CodeOf(svc.TakePicture(sceneID, 424242)))

	timelines, values := sc.Pending()
	require.Equal(t, []uint64{2}, values)
	res, err := d.WaitTimelines(timelines, values, gpu.Infinite)
	require.NoError(t, err)
	assert.Equal(t, gpu.WaitSuccess, res)
}

func TestHandle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Handle(ctx, "CreateScene", json.RawMessage(`{"index": 2}`))
	require.NoError(t, err)
	created, ok := res.(IDResponse)
	require.True(t, ok)
	assert.NotZero(t, created.ID)

	res, err = svc.Handle(ctx, "CreateMaterial", nil)
	require.NoError(t, err)
	mat := res.(IDResponse)

	res, err = svc.Handle(ctx, "AddBodyPrimitive", json.RawMessage(`{"scene_id": `+jsonID(created.ID)+`, "type": "plane", "scale": [1, 1, 1], "material": `+jsonID(mat.ID)+`}`))
	require.NoError(t, err)
	body := res.(IDResponse)

	res, err = svc.Handle(ctx, "GetShapeCount", json.RawMessage(`{"scene_id": `+jsonID(created.ID)+`, "body_id": `+jsonID(body.ID)+`}`))
	require.NoError(t, err)
	assert.Equal(t, ValueResponse{Value: 1}, res)

	res, err = svc.Handle(ctx, "Summary", json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, SummaryResponse{Summary: "Scene     1\nMaterials 1\n"}, res)

	_, err = svc.Handle(ctx, "CreateScene", json.RawMessage(`{"index": "two"}`))
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = svc.Handle(ctx, "Teleport", nil)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = svc.Handle(ctx, "RemoveScene", json.RawMessage(`{"id": 424242}`))
	assert.Equal(t, status.NotFound, status.CodeOf(err))

	assert.Contains(t, svc.Methods(), "UpdateRenderAndTakePictures")
	assert.Len(t, svc.Methods(), 24)
}

func TestParsePrimitiveType(t *testing.T) {
	for name, want := range map[string]PrimitiveType{
		"box":      PrimitiveBox,
		"Sphere":   PrimitiveSphere,
		"PLANE":    PrimitivePlane,
		"capsule":  PrimitiveCapsule,
		"cylinder": PrimitiveCylinder,
	} {
		got, err := ParsePrimitiveType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParsePrimitiveType("cone")
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func jsonID(id common.ID) string {
	b, _ := json.Marshal(id)
	return string(b)
}
