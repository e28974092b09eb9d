// Package client is the caller-side proxy of one render server scene.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/service"
	"github.com/Carmen-Shannon/oxy-render/engine/transport"
)

// Caller issues one remote call. *transport.Client implements it.
type Caller interface {
	Call(ctx context.Context, method string, params any, result any) error
}

// System owns one server scene and mirrors the bodies and cameras registered with it.
// Pose uploads address entities by position, so the entity order is re-sent to the
// server whenever a body or camera was registered since the last upload.
type System struct {
	logger log.Logger
	caller Caller
	owned  *transport.Client

	index   int
	sceneID common.ID

	mu      sync.Mutex
	bodies  []*Body
	cameras []*Camera
	synced  bool
}

// NewSystem creates the system's scene on the server.
//
// Parameters:
//   - ctx: bounds the CreateScene call
//   - caller: the connection to the server
//   - index: the scene slot index
//
// Returns:
//   - *System: the system
//   - error: the CreateScene error
func NewSystem(ctx context.Context, caller Caller, index int) (*System, error) {
	var res service.IDResponse
	if err := caller.Call(ctx, "CreateScene", service.IndexRequest{Index: index}, &res); err != nil {
		return nil, err
	}
	s := &System{
		logger:  log.New("client"),
		caller:  caller,
		index:   index,
		sceneID: res.ID,
		synced:  true,
	}
	s.logger.Infof("scene %d created at index %d", s.sceneID, index)
	return s, nil
}

// Connect dials a server and creates a System on the new connection. Close also closes the connection.
//
// Parameters:
//   - ctx: bounds the handshake and the CreateScene call
//   - address: the server's host:port
//   - index: the scene slot index
//
// Returns:
//   - *System: the system
//   - error: the dial or CreateScene error
func Connect(ctx context.Context, address string, index int) (*System, error) {
	c, err := transport.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	s, err := NewSystem(ctx, c, index)
	if err != nil {
		c.Close()
		return nil, err
	}
	s.owned = c
	return s, nil
}

// Summary fetches the server's scene and material counts.
//
// Parameters:
//   - ctx: bounds the call
//   - caller: the connection to the server
//
// Returns:
//   - string: the summary text
//   - error: the call error
func Summary(ctx context.Context, caller Caller) (string, error) {
	var res service.SummaryResponse
	if err := caller.Call(ctx, "Summary", nil, &res); err != nil {
		return "", err
	}
	return res.Summary, nil
}

// SceneID returns the server id of the system's scene.
func (s *System) SceneID() common.ID {
	return s.sceneID
}

// Index returns the scene slot index.
func (s *System) Index() int {
	return s.index
}

// Caller returns the connection the system talks through.
func (s *System) Caller() Caller {
	return s.caller
}

// RegisterBody adds a body to the pose uploads.
func (s *System) RegisterBody(b *Body) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = false
	s.bodies = append(s.bodies, b)
}

// RegisterCamera adds a camera to the pose uploads.
func (s *System) RegisterCamera(c *Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = false
	s.cameras = append(s.cameras, c)
}

// CreateMaterial creates a server material with a base color.
//
// Parameters:
//   - ctx: bounds the calls
//   - color: the RGBA base color
//
// Returns:
//   - common.ID: the material id
//   - error: the call error
func (s *System) CreateMaterial(ctx context.Context, color [4]float32) (common.ID, error) {
	var res service.IDResponse
	if err := s.caller.Call(ctx, "CreateMaterial", nil, &res); err != nil {
		return 0, err
	}
	if err := s.caller.Call(ctx, "SetBaseColor", service.Vec4Request{ID: res.ID, Data: color}, nil); err != nil {
		return 0, err
	}
	return res.ID, nil
}

// AddPrimitive creates a primitive server body and registers it as a single-shape body.
//
// Parameters:
//   - ctx: bounds the call
//   - req: the body description, SceneID is filled in
//
// Returns:
//   - *Body: the registered body
//   - error: the call error
func (s *System) AddPrimitive(ctx context.Context, req service.AddBodyPrimitiveRequest) (*Body, error) {
	req.SceneID = s.sceneID
	var res service.IDResponse
	if err := s.caller.Call(ctx, "AddBodyPrimitive", req, &res); err != nil {
		return nil, err
	}
	b := NewBody(Shape{ID: res.ID, Local: common.IdentityPose()})
	s.RegisterBody(b)
	return b, nil
}

// AddMesh creates a server body from a mesh file and registers it as a single-shape body.
//
// Parameters:
//   - ctx: bounds the call
//   - req: the body description, SceneID is filled in
//
// Returns:
//   - *Body: the registered body
//   - error: the call error
func (s *System) AddMesh(ctx context.Context, req service.AddBodyMeshRequest) (*Body, error) {
	req.SceneID = s.sceneID
	var res service.IDResponse
	if err := s.caller.Call(ctx, "AddBodyMesh", req, &res); err != nil {
		return nil, err
	}
	b := NewBody(Shape{ID: res.ID, Local: common.IdentityPose()})
	s.RegisterBody(b)
	return b, nil
}

// AddCamera creates a server camera and registers it.
//
// Parameters:
//   - ctx: bounds the call
//   - req: the camera description, SceneID is filled in
//   - local: the mount pose of the camera relative to its parent
//
// Returns:
//   - *Camera: the registered camera
//   - error: the call error
func (s *System) AddCamera(ctx context.Context, req service.AddCameraRequest, local common.Pose) (*Camera, error) {
	req.SceneID = s.sceneID
	var res service.IDResponse
	if err := s.caller.Call(ctx, "AddCamera", req, &res); err != nil {
		return nil, err
	}
	c := NewCamera(res.ID, local)
	s.RegisterCamera(c)
	return c, nil
}

// SetAmbientLight sets the scene's ambient color.
func (s *System) SetAmbientLight(ctx context.Context, color [3]float32) error {
	return s.caller.Call(ctx, "SetAmbientLight", service.Vec3Request{ID: s.sceneID, Data: color}, nil)
}

// AddPointLight adds a point light to the scene.
//
// Parameters:
//   - ctx: bounds the call
//   - req: the light description, SceneID is filled in
//
// Returns:
//   - common.ID: the light id
//   - error: the call error
func (s *System) AddPointLight(ctx context.Context, req service.AddPointLightRequest) (common.ID, error) {
	req.SceneID = s.sceneID
	var res service.IDResponse
	if err := s.caller.Call(ctx, "AddPointLight", req, &res); err != nil {
		return 0, err
	}
	return res.ID, nil
}

// AddDirectionalLight adds a directional light to the scene.
//
// Parameters:
//   - ctx: bounds the call
//   - req: the light description, SceneID is filled in
//
// Returns:
//   - common.ID: the light id
//   - error: the call error
func (s *System) AddDirectionalLight(ctx context.Context, req service.AddDirectionalLightRequest) (common.ID, error) {
	req.SceneID = s.sceneID
	var res service.IDResponse
	if err := s.caller.Call(ctx, "AddDirectionalLight", req, &res); err != nil {
		return 0, err
	}
	return res.ID, nil
}

// SyncOrder uploads the entity order if anything was registered since the last upload.
//
// Parameters:
//   - ctx: bounds the call
//
// Returns:
//   - error: the SetEntityOrder error; the order stays unsynced
func (s *System) SyncOrder(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncOrderLocked(ctx)
}

func (s *System) syncOrderLocked(ctx context.Context) error {
	if s.synced {
		return nil
	}
	req := service.EntityOrderRequest{SceneID: s.sceneID}
	for _, b := range s.bodies {
		for _, shape := range b.Shapes() {
			req.BodyIDs = append(req.BodyIDs, shape.ID)
		}
	}
	for _, c := range s.cameras {
		req.CameraIDs = append(req.CameraIDs, c.ID())
	}
	if err := s.caller.Call(ctx, "SetEntityOrder", req, nil); err != nil {
		return fmt.Errorf("failed to sync order: %w", err)
	}
	s.synced = true
	return nil
}

// posesLocked collects the world poses of every registered shape and camera in upload order.
func (s *System) posesLocked() ([]service.Pose, []service.Pose) {
	var world []common.Pose
	for _, b := range s.bodies {
		world = b.worldPoses(world)
	}
	bodies := make([]service.Pose, len(world))
	for i, p := range world {
		bodies[i].P, bodies[i].Q = p.Wire()
	}
	cameras := make([]service.Pose, len(s.cameras))
	for i, c := range s.cameras {
		cameras[i].P, cameras[i].Q = c.worldPose().Wire()
	}
	return bodies, cameras
}

// Step uploads the current poses of every registered body and camera.
//
// Parameters:
//   - ctx: bounds the calls
//
// Returns:
//   - error: the SetEntityOrder or UpdateRender error
func (s *System) Step(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.syncOrderLocked(ctx); err != nil {
		return err
	}
	bodies, cameras := s.posesLocked()
	if err := s.caller.Call(ctx, "UpdateRender", service.UpdateRenderRequest{
		SceneID:     s.sceneID,
		BodyPoses:   bodies,
		CameraPoses: cameras,
	}, nil); err != nil {
		return fmt.Errorf("failed to update render: %w", err)
	}
	return nil
}

// UpdateRenderAndTakePictures uploads the current poses and schedules one picture per camera.
//
// Parameters:
//   - ctx: bounds the calls
//   - cameras: the cameras to take pictures with
//
// Returns:
//   - error: the SetEntityOrder or UpdateRenderAndTakePictures error
func (s *System) UpdateRenderAndTakePictures(ctx context.Context, cameras ...*Camera) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.syncOrderLocked(ctx); err != nil {
		return err
	}
	bodies, poses := s.posesLocked()
	ids := make([]common.ID, len(cameras))
	for i, c := range cameras {
		ids[i] = c.ID()
	}
	return s.caller.Call(ctx, "UpdateRenderAndTakePictures", service.UpdateRenderAndTakePicturesRequest{
		SceneID:     s.sceneID,
		BodyPoses:   bodies,
		CameraPoses: poses,
		CameraIDs:   ids,
	}, nil)
}

// Close removes the scene from the server, ignoring failures, and closes an owned connection.
//
// Parameters:
//   - ctx: bounds the RemoveScene call
func (s *System) Close(ctx context.Context) {
	if err := s.caller.Call(ctx, "RemoveScene", service.IDRequest{ID: s.sceneID}, nil); err != nil {
		s.logger.Debugf("remove scene %d: %v", s.sceneID, err)
	}
	if s.owned != nil {
		s.owned.Close()
	}
}
