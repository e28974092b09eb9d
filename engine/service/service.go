package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/registry"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// renderService is the implementation of the RenderService interface.
type renderService struct {
	logger log.Logger

	device     gpu.Device
	loader     loader.Loader
	shaderDir  string
	queueDepth int
	pool       worker.DynamicWorkerPool
	bands      int
	fillSource scene.FillInfoSource
	observer   func(scene.FrameResult)
	fatal      scene.FatalFunc

	scenes          registry.Registry[scene.Scene]
	slots           *scene.SlotTable
	materials       registry.Registry[material.Material]
	objectMaterials registry.WeakRegistry[material.Material]

	cubeMesh   *model.Mesh
	sphereMesh *model.Mesh
	planeMesh  *model.Mesh

	methods map[string]methodFunc
}

// RenderService is the remote-call surface of the render server. Every operation
// is safe for concurrent use; picture requests return once the picture is scheduled.
type RenderService interface {
	// CreateScene creates a scene at a slot index.
	//
	// Parameters:
	//   - index: the slot index, below scene.MaxSceneIndex
	//
	// Returns:
	//   - common.ID: the scene id
	//   - error: InvalidArgument for negative indices, ResourceExhausted for too large ones
	CreateScene(index int) (common.ID, error)

	// RemoveScene waits for the scene's pending pictures, then removes it and its bodies.
	//
	// Parameters:
	//   - id: the scene id
	//
	// Returns:
	//   - error: NotFound for unknown scenes, Internal if waiting failed (the scene is removed anyway)
	RemoveScene(id common.ID) error

	// CreateMaterial creates a white material owned by the service.
	//
	// Returns:
	//   - common.ID: the material id
	CreateMaterial() (common.ID, error)

	// RemoveMaterial drops the service's reference to a material. Bodies using it keep it alive.
	// Unknown ids are ignored.
	RemoveMaterial(id common.ID) error

	// SetBaseColor sets the RGBA base color of an explicit or per-shape material.
	SetBaseColor(id common.ID, color [4]float32) error

	// SetRoughness sets the roughness of a material.
	SetRoughness(id common.ID, value float32) error

	// SetSpecular sets the specular reflectance of a material.
	SetSpecular(id common.ID, value float32) error

	// SetMetallic sets the metallic factor of a material.
	SetMetallic(id common.ID, value float32) error

	// AddBodyMesh adds a body loaded from a mesh file (.obj, .gltf, .glb).
	// Loaded files are cached by path; every body gets its own materials.
	//
	// Returns:
	//   - common.ID: the body id
	//   - error: NotFound for unknown scenes or missing files, InvalidArgument for unreadable files
	AddBodyMesh(req AddBodyMeshRequest) (common.ID, error)

	// AddBodyPrimitive adds a box, sphere, plane, capsule or cylinder body using an existing material.
	//
	// Returns:
	//   - common.ID: the body id
	//   - error: NotFound for unknown scenes or materials, InvalidArgument for unknown types
	AddBodyPrimitive(req AddBodyPrimitiveRequest) (common.ID, error)

	// RemoveBody removes a body from a scene.
	RemoveBody(sceneID, bodyID common.ID) error

	// SetVisibility sets a body's transparency to 1 - value.
	SetVisibility(sceneID, bodyID common.ID, value float32) error

	// GetShapeCount returns the number of shapes of a body.
	GetShapeCount(sceneID, bodyID common.ID) (int, error)

	// GetShapeMaterial returns the material id of one shape of a body. Ids are
	// generated on first request and stable afterwards.
	//
	// Returns:
	//   - common.ID: the material id
	//   - error: NotFound for unknown scenes or bodies, InvalidArgument for bad shape indices
	GetShapeMaterial(sceneID, bodyID common.ID, shape int) (common.ID, error)

	// AddCamera adds a camera with its own renderer to a scene.
	//
	// Returns:
	//   - common.ID: the camera id
	//   - error: InvalidArgument for bad sizes or intrinsics, Internal for missing shader directories
	AddCamera(req AddCameraRequest) (common.ID, error)

	// SetCameraParameters replaces a camera's intrinsics, keeping its size.
	SetCameraParameters(req CameraParamsRequest) error

	// SetAmbientLight sets a scene's ambient color.
	SetAmbientLight(sceneID common.ID, color [3]float32) error

	// AddPointLight adds a point light to a scene.
	AddPointLight(req AddPointLightRequest) (common.ID, error)

	// AddDirectionalLight adds a directional light to a scene.
	AddDirectionalLight(req AddDirectionalLightRequest) (common.ID, error)

	// SetEntityOrder fixes the order batched pose updates address bodies and cameras in.
	SetEntityOrder(sceneID common.ID, bodyIDs, cameraIDs []common.ID) error

	// UpdateRender applies poses to the ordered bodies and cameras.
	//
	// Returns:
	//   - error: InvalidArgument if the pose counts differ from the ordered entity counts
	UpdateRender(sceneID common.ID, bodyPoses, cameraPoses []common.Pose) error

	// TakePicture schedules a picture and returns without waiting for it.
	TakePicture(sceneID, cameraID common.ID) error

	// UpdateRenderAndTakePictures applies poses, then schedules one picture per listed camera.
	UpdateRenderAndTakePictures(sceneID common.ID, bodyPoses, cameraPoses []common.Pose, cameraIDs []common.ID) error

	// Scene looks up a scene by id.
	Scene(id common.ID) (scene.Scene, error)

	// SceneAt returns the scene occupying a slot index.
	SceneAt(index int) (scene.Scene, bool)

	// Scenes returns every live scene.
	Scenes() []scene.Scene

	// Summary reports the scene and material counts.
	Summary() string

	// Close removes every scene.
	Close()

	Handler
}

var _ RenderService = &renderService{}

// NewRenderService creates a RenderService. A device is required.
//
// Parameters:
//   - options: a variadic list of RenderServiceBuilderOption functions to configure the service
//
// Returns:
//   - RenderService: the service
//   - error: InvalidArgument without a device
func NewRenderService(options ...RenderServiceBuilderOption) (RenderService, error) {
	s := &renderService{
		logger:          log.New("service"),
		queueDepth:      scene.DefaultQueueDepth,
		bands:           1,
		scenes:          registry.NewRegistry[scene.Scene]("scene"),
		slots:           scene.NewSlotTable(),
		materials:       registry.NewRegistry[material.Material]("material"),
		objectMaterials: registry.NewWeakRegistry[material.Material]("material"),
		cubeMesh:        model.CreateCube(),
		sphereMesh:      model.CreateUVSphere(32, 16),
		planeMesh:       model.CreateYZPlane(),
	}
	for _, option := range options {
		option(s)
	}
	if s.device == nil {
		return nil, status.Errorf(status.InvalidArgument, "render service needs a device")
	}
	if s.loader == nil {
		s.loader = loader.NewLoader()
	}
	s.methods = s.methodTable()
	return s, nil
}

func (s *renderService) CreateScene(index int) (common.ID, error) {
	sc, err := scene.NewScene(
		scene.WithIndex(index),
		scene.WithDevice(s.device),
		scene.WithQueueDepth(s.queueDepth),
		scene.WithFillInfoSource(s.fillSource),
		scene.WithObserver(s.observer),
		scene.WithFatalHandler(s.fatal),
	)
	if err != nil {
		return 0, err
	}
	s.scenes.Set(sc.ID(), sc)
	s.slots.Put(index, sc)
	s.logger.Infof("scene %d created at index %d", sc.ID(), index)
	return sc.ID(), nil
}

func (s *renderService) RemoveScene(id common.ID) error {
	sc, err := s.scenes.Get(id)
	if err != nil {
		return err
	}
	s.slots.Clear(sc.Index(), sc)
	closeErr := sc.Close()
	s.scenes.Erase(id)
	s.objectMaterials.Compact()
	if closeErr != nil {
		s.logger.Errorf("scene %d removed after failed wait: %v", id, closeErr)
	}
	return closeErr
}

func (s *renderService) CreateMaterial() (common.ID, error) {
	id := common.NextID()
	mat := material.NewMaterial(material.WithName(fmt.Sprintf("material-%d", id)))
	mat.Retain()
	s.materials.Set(id, mat)
	return id, nil
}

func (s *renderService) RemoveMaterial(id common.ID) error {
	var removed material.Material
	s.materials.Update(func(m map[common.ID]material.Material) {
		removed = m[id]
		delete(m, id)
	})
	if removed != nil {
		removed.Release()
	}
	return nil
}

// material resolves an explicit material or a live per-shape material.
func (s *renderService) material(id common.ID) (material.Material, error) {
	if mat := s.materials.GetOr(id, nil); mat != nil {
		return mat, nil
	}
	mat, err := s.objectMaterials.Get(id)
	if err != nil {
		return nil, status.Errorf(status.NotFound, "material %d: object expired", id)
	}
	return mat, nil
}

func (s *renderService) SetBaseColor(id common.ID, color [4]float32) error {
	mat, err := s.material(id)
	if err != nil {
		return err
	}
	mat.SetBaseColor(color)
	return nil
}

func (s *renderService) SetRoughness(id common.ID, value float32) error {
	mat, err := s.material(id)
	if err != nil {
		return err
	}
	mat.SetRoughness(value)
	return nil
}

func (s *renderService) SetSpecular(id common.ID, value float32) error {
	mat, err := s.material(id)
	if err != nil {
		return err
	}
	mat.SetSpecular(value)
	return nil
}

func (s *renderService) SetMetallic(id common.ID, value float32) error {
	mat, err := s.material(id)
	if err != nil {
		return err
	}
	mat.SetMetallic(value)
	return nil
}

func (s *renderService) AddBodyMesh(req AddBodyMeshRequest) (common.ID, error) {
	sc, err := s.scenes.Get(req.SceneID)
	if err != nil {
		return 0, err
	}
	imported, err := s.loader.Load(req.Filename)
	if err != nil {
		return 0, err
	}
	mdl, err := model.FromImported(imported)
	if err != nil {
		return 0, status.Errorf(status.InvalidArgument, "invalid mesh %q: %v", req.Filename, err)
	}

	obj := game_object.NewGameObject(
		game_object.WithModel(mdl),
		game_object.WithSegmentation(req.Segmentation0, req.Segmentation1),
	)
	sc.AddObject(obj)
	return obj.ID(), nil
}

func (s *renderService) AddBodyPrimitive(req AddBodyPrimitiveRequest) (common.ID, error) {
	typ, err := ParsePrimitiveType(req.Type)
	if err != nil {
		return 0, err
	}
	mat, err := s.material(req.Material)
	if err != nil {
		return 0, err
	}
	sc, err := s.scenes.Get(req.SceneID)
	if err != nil {
		return 0, err
	}

	scale := req.Scale
	var mesh *model.Mesh
	switch typ {
	case PrimitiveBox:
		mesh = s.cubeMesh
	case PrimitiveSphere:
		mesh = s.sphereMesh
	case PrimitivePlane:
		mesh = s.planeMesh
	case PrimitiveCapsule:
		mesh = model.CreateCapsule(scale[1], scale[0], 32, 8)
		scale = [3]float32{1, 1, 1}
	case PrimitiveCylinder:
		mesh = model.CreateCylinder(32)
	}

	obj := game_object.NewGameObject(
		game_object.WithModel(model.NewModel(model.WithName(typ.String()), model.WithMesh(mesh, mat))),
		game_object.WithScale(scale),
		game_object.WithSegmentation(req.Segmentation0, req.Segmentation1),
	)
	sc.AddObject(obj)
	sc.SetMaterialIDs(obj.ID(), []common.ID{req.Material})
	return obj.ID(), nil
}

func (s *renderService) RemoveBody(sceneID, bodyID common.ID) error {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	if err := sc.RemoveObject(bodyID); err != nil {
		return err
	}
	s.objectMaterials.Compact()
	return nil
}

func (s *renderService) object(sceneID, bodyID common.ID) (game_object.GameObject, error) {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return nil, err
	}
	return sc.Object(bodyID)
}

func (s *renderService) SetVisibility(sceneID, bodyID common.ID, value float32) error {
	obj, err := s.object(sceneID, bodyID)
	if err != nil {
		return err
	}
	obj.SetTransparency(1 - value)
	return nil
}

func (s *renderService) GetShapeCount(sceneID, bodyID common.ID) (int, error) {
	obj, err := s.object(sceneID, bodyID)
	if err != nil {
		return 0, err
	}
	if obj.Model() == nil {
		return 0, nil
	}
	return obj.Model().ShapeCount(), nil
}

func (s *renderService) GetShapeMaterial(sceneID, bodyID common.ID, shape int) (common.ID, error) {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return 0, err
	}
	ids, err := sc.MaterialIDs(bodyID, func(obj game_object.GameObject) []common.ID {
		if obj.Model() == nil {
			return nil
		}
		shapes := obj.Model().Shapes()
		ids := make([]common.ID, len(shapes))
		for i, sh := range shapes {
			ids[i] = common.NextID()
			s.objectMaterials.Set(ids[i], sh.Material)
			s.logger.Debugf("generated material %d for shape %d of body %d", ids[i], i, bodyID)
		}
		return ids
	})
	if err != nil {
		return 0, err
	}
	if shape < 0 || shape >= len(ids) {
		return 0, status.Errorf(status.InvalidArgument, "shape index %d out of range [0, %d)", shape, len(ids))
	}
	return ids[shape], nil
}

// resolveShaderDir applies the configured fallback and checks that a named directory exists.
func (s *renderService) resolveShaderDir(dir string) (string, error) {
	dir = common.Coalesce(strings.TrimSpace(dir), s.shaderDir)
	if dir == "" {
		return "", nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", status.Errorf(status.Internal, "shader directory %q: %v", dir, err)
	}
	if !info.IsDir() {
		return "", status.Errorf(status.Internal, "shader directory %q is not a directory", dir)
	}
	return dir, nil
}

func (s *renderService) AddCamera(req AddCameraRequest) (common.ID, error) {
	sc, err := s.scenes.Get(req.SceneID)
	if err != nil {
		return 0, err
	}
	shaderDir, err := s.resolveShaderDir(req.Shader)
	if err != nil {
		return 0, err
	}

	cam, err := camera.NewCamera(
		camera.WithSize(req.Width, req.Height),
		camera.WithIntrinsics(camera.Intrinsics{
			Near: req.Near, Far: req.Far,
			Fx: req.Fx, Fy: req.Fy,
			Cx: req.Cx, Cy: req.Cy,
			Skew: req.Skew,
		}),
	)
	if err != nil {
		return 0, err
	}
	r, err := renderer.NewRenderer(
		renderer.WithSize(req.Width, req.Height),
		renderer.WithShaderDir(shaderDir),
		renderer.WithWorkerPool(s.pool, s.bands),
	)
	if err != nil {
		return 0, err
	}

	entry, err := sc.AddCamera(common.NextID(), cam, r)
	if err != nil {
		return 0, err
	}
	s.logger.Infof("camera %d (%dx%d) added to scene %d at index %d", entry.ID(), req.Width, req.Height, sc.ID(), entry.Index())
	return entry.ID(), nil
}

func (s *renderService) SetCameraParameters(req CameraParamsRequest) error {
	sc, err := s.scenes.Get(req.SceneID)
	if err != nil {
		return err
	}
	entry, err := sc.Camera(req.CameraID)
	if err != nil {
		return err
	}
	return entry.Camera().SetIntrinsics(camera.Intrinsics{
		Near: req.Near, Far: req.Far,
		Fx: req.Fx, Fy: req.Fy,
		Cx: req.Cx, Cy: req.Cy,
		Skew: req.Skew,
	})
}

func (s *renderService) SetAmbientLight(sceneID common.ID, color [3]float32) error {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	sc.SetAmbientLight(color)
	return nil
}

func (s *renderService) AddPointLight(req AddPointLightRequest) (common.ID, error) {
	sc, err := s.scenes.Get(req.SceneID)
	if err != nil {
		return 0, err
	}
	l := light.NewLight(light.LightTypePoint,
		light.WithPosition(req.Position),
		light.WithColor(req.Color),
		light.WithShadow(light.Shadow{
			Enabled: req.Shadow,
			Near:    req.ShadowNear,
			Far:     req.ShadowFar,
			MapSize: req.ShadowMapSize,
		}),
	)
	sc.AddLight(l)
	return l.ID(), nil
}

func (s *renderService) AddDirectionalLight(req AddDirectionalLightRequest) (common.ID, error) {
	sc, err := s.scenes.Get(req.SceneID)
	if err != nil {
		return 0, err
	}
	l := light.NewLight(light.LightTypeDirectional,
		light.WithDirection(req.Direction),
		light.WithColor(req.Color),
		light.WithShadow(light.Shadow{
			Enabled:  req.Shadow,
			Near:     req.ShadowNear,
			Far:      req.ShadowFar,
			MapSize:  req.ShadowMapSize,
			Position: req.Position,
			Scale:    req.ShadowScale,
		}),
	)
	sc.AddLight(l)
	return l.ID(), nil
}

func (s *renderService) SetEntityOrder(sceneID common.ID, bodyIDs, cameraIDs []common.ID) error {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	return sc.SetEntityOrder(bodyIDs, cameraIDs)
}

func (s *renderService) UpdateRender(sceneID common.ID, bodyPoses, cameraPoses []common.Pose) error {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	return sc.UpdatePoses(bodyPoses, cameraPoses)
}

func (s *renderService) TakePicture(sceneID, cameraID common.ID) error {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	return sc.TakePicture(cameraID)
}

func (s *renderService) UpdateRenderAndTakePictures(sceneID common.ID, bodyPoses, cameraPoses []common.Pose, cameraIDs []common.ID) error {
	sc, err := s.scenes.Get(sceneID)
	if err != nil {
		return err
	}
	return sc.UpdateAndTakePictures(bodyPoses, cameraPoses, cameraIDs)
}

func (s *renderService) Scene(id common.ID) (scene.Scene, error) {
	return s.scenes.Get(id)
}

func (s *renderService) SceneAt(index int) (scene.Scene, bool) {
	return s.slots.Get(index)
}

func (s *renderService) Scenes() []scene.Scene {
	snapshot := s.scenes.Snapshot()
	out := make([]scene.Scene, 0, len(snapshot))
	for _, sc := range snapshot {
		out = append(out, sc)
	}
	return out
}

func (s *renderService) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scene     %d\n", s.scenes.Len())
	fmt.Fprintf(&b, "Materials %d\n", s.materials.Len())
	return b.String()
}

func (s *renderService) Close() {
	for id := range s.scenes.Snapshot() {
		if err := s.RemoveScene(id); err != nil {
			s.logger.Warningf("closing scene %d: %v", id, err)
		}
	}
}
