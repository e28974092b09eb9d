package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/game_object"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxSceneIndex is the exclusive upper bound of scene indices.
const MaxSceneIndex = buffer.MaxSceneIndex

// DefaultQueueDepth is the default capacity of a scene's picture queue.
const DefaultQueueDepth = 1024

// DefaultAmbientLight is the ambient color of a new scene.
var DefaultAmbientLight = [3]float32{0.3, 0.3, 0.3}

// FrameResult reports one finished picture task.
type FrameResult struct {
	Scene  common.ID
	Camera common.ID
	Frame  uint64
	// Err is the render failure, if any. The frame was submitted zero-filled.
	Err error
}

// FatalFunc is called on unrecoverable synchronization failures.
type FatalFunc func(format string, args ...any)

// FillInfoSource answers where a camera's render targets are copied to.
type FillInfoSource interface {
	FillInfo(sceneIndex, cameraIndex int) []buffer.FillInfo
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu sync.RWMutex

	id     common.ID
	index  int
	closed bool

	device     gpu.Device
	fillSource FillInfoSource
	worker     *frameWorker
	queueDepth int
	logger     log.Logger
	observer   func(FrameResult)
	fatal      FatalFunc

	objects           map[common.ID]game_object.GameObject
	objectList        []common.ID
	objectMaterialIDs map[common.ID][]common.ID

	cameras    map[common.ID]*CameraEntry
	cameraList []*CameraEntry

	orderedObjects []game_object.GameObject
	orderedCameras []*CameraEntry

	ambient [3]float32
	lights  []light.Light
}

// Scene is one remotely driven world: its bodies, lights and cameras, the pose
// order used by batched updates, and a single worker that renders its pictures
// in request order. Every method is safe for concurrent use.
type Scene interface {
	// ID returns the scene's unique identifier.
	ID() common.ID

	// Index returns the scene's slot index, which selects its output region.
	Index() int

	// AddObject places a body in the scene.
	//
	// Parameters:
	//   - obj: the body
	AddObject(obj game_object.GameObject)

	// RemoveObject removes a body and drops its material references.
	//
	// Parameters:
	//   - id: the body id
	//
	// Returns:
	//   - error: NotFound if the body is not in the scene
	RemoveObject(id common.ID) error

	// Object looks up a body.
	//
	// Parameters:
	//   - id: the body id
	//
	// Returns:
	//   - game_object.GameObject: the body
	//   - error: NotFound if the body is not in the scene
	Object(id common.ID) (game_object.GameObject, error)

	// ObjectCount returns the number of bodies.
	ObjectCount() int

	// SetMaterialIDs records the material ids exposed for a body's shapes.
	//
	// Parameters:
	//   - bodyID: the body id
	//   - ids: one material id per shape
	SetMaterialIDs(bodyID common.ID, ids []common.ID)

	// MaterialIDs returns the material ids of a body, generating them on first use.
	// generate is called at most once per body, with the scene locked.
	//
	// Parameters:
	//   - bodyID: the body id
	//   - generate: produces one material id per shape of the body
	//
	// Returns:
	//   - []common.ID: the material ids
	//   - error: NotFound if the body is not in the scene
	MaterialIDs(bodyID common.ID, generate func(obj game_object.GameObject) []common.ID) ([]common.ID, error)

	// AddCamera registers a camera rendered by r. The camera's index is the number of
	// cameras added before it.
	//
	// Parameters:
	//   - id: the camera id
	//   - cam: the camera node
	//   - r: the renderer, sized like the camera
	//
	// Returns:
	//   - *CameraEntry: the registered camera
	//   - error: InvalidArgument if the renderer size differs from the camera size
	AddCamera(id common.ID, cam camera.Camera, r renderer.Renderer) (*CameraEntry, error)

	// Camera looks up a camera.
	//
	// Parameters:
	//   - id: the camera id
	//
	// Returns:
	//   - *CameraEntry: the camera
	//   - error: NotFound if the camera is not in the scene
	Camera(id common.ID) (*CameraEntry, error)

	// Cameras returns the cameras in index order.
	Cameras() []*CameraEntry

	// SetAmbientLight sets the ambient color.
	SetAmbientLight(color [3]float32)

	// AmbientLight returns the ambient color.
	AmbientLight() [3]float32

	// AddLight adds a point or directional light.
	AddLight(l light.Light)

	// Lights returns the point and directional lights.
	Lights() []light.Light

	// SetEntityOrder fixes the order in which batched pose updates address bodies and cameras.
	//
	// Parameters:
	//   - bodyIDs: the body order
	//   - cameraIDs: the camera order
	//
	// Returns:
	//   - error: NotFound if any id is unknown, in which case the previous order is kept
	SetEntityOrder(bodyIDs, cameraIDs []common.ID) error

	// UpdatePoses applies pose i to the i-th ordered body and camera.
	//
	// Parameters:
	//   - bodyPoses: one pose per ordered body
	//   - cameraPoses: one pose per ordered camera
	//
	// Returns:
	//   - error: InvalidArgument on a count mismatch, in which case no pose is applied
	UpdatePoses(bodyPoses, cameraPoses []common.Pose) error

	// TakePicture schedules a picture of the camera and returns without waiting for it.
	//
	// Parameters:
	//   - cameraID: the camera id
	//
	// Returns:
	//   - error: NotFound for unknown cameras or removed scenes
	TakePicture(cameraID common.ID) error

	// UpdateAndTakePictures applies poses as UpdatePoses does and then schedules a
	// picture of every listed camera, all under one lock.
	//
	// Parameters:
	//   - bodyPoses: one pose per ordered body
	//   - cameraPoses: one pose per ordered camera
	//   - cameraIDs: the cameras to take pictures with
	//
	// Returns:
	//   - error: InvalidArgument or NotFound, in which case nothing is applied or scheduled
	UpdateAndTakePictures(bodyPoses, cameraPoses []common.Pose, cameraIDs []common.ID) error

	// RefreshFillInfo re-resolves every camera's copy destinations from source.
	//
	// Parameters:
	//   - source: the destination resolver
	RefreshFillInfo(source FillInfoSource)

	// Stats describes the scene for output buffer layout computation.
	Stats() buffer.SceneStats

	// Pending returns every camera timeline paired with its frame counter. Waiting
	// for all pairs waits for every picture requested so far.
	Pending() ([]gpu.Timeline, []uint64)

	// Close waits for every requested picture, stops the worker and releases the bodies.
	// Requests made after Close fail with NotFound.
	//
	// Returns:
	//   - error: Internal if waiting for the cameras failed
	Close() error
}

var _ Scene = &scene{}

// NewScene creates a new Scene and starts its worker.
//
// Parameters:
//   - options: a variadic list of SceneBuilderOption functions to configure the Scene
//
// Returns:
//   - Scene: the scene
//   - error: InvalidArgument without a device or with a negative index, ResourceExhausted for too large indices
func NewScene(options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		logger:            log.New("scene"),
		queueDepth:        DefaultQueueDepth,
		ambient:           DefaultAmbientLight,
		objects:           make(map[common.ID]game_object.GameObject),
		objectMaterialIDs: make(map[common.ID][]common.ID),
		cameras:           make(map[common.ID]*CameraEntry),
	}
	for _, option := range options {
		option(s)
	}
	if s.device == nil {
		return nil, status.Errorf(status.InvalidArgument, "scene needs a device")
	}
	if s.index < 0 {
		return nil, status.Errorf(status.InvalidArgument, "negative scene index %d", s.index)
	}
	if s.index >= MaxSceneIndex {
		return nil, status.Errorf(status.ResourceExhausted, "scene index %d exceeds the limit of %d", s.index, MaxSceneIndex)
	}
	if s.id == 0 {
		s.id = common.NextID()
	}
	if s.fatal == nil {
		s.fatal = s.logger.Fatalf
	}
	s.worker = newFrameWorker(s.queueDepth)
	return s, nil
}

func (s *scene) ID() common.ID {
	return s.id
}

func (s *scene) Index() int {
	return s.index
}

func (s *scene) AddObject(obj game_object.GameObject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[obj.ID()]; !exists {
		s.objectList = append(s.objectList, obj.ID())
	}
	s.objects[obj.ID()] = obj
}

func (s *scene) RemoveObject(id common.ID) error {
	s.mu.Lock()
	obj, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()
		return status.Errorf(status.NotFound, "body %d not found in scene %d", id, s.id)
	}
	delete(s.objects, id)
	delete(s.objectMaterialIDs, id)
	for i, oid := range s.objectList {
		if oid == id {
			s.objectList = append(s.objectList[:i], s.objectList[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	obj.Release()
	return nil
}

func (s *scene) Object(id common.ID) (game_object.GameObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return nil, status.Errorf(status.NotFound, "body %d not found in scene %d", id, s.id)
	}
	return obj, nil
}

func (s *scene) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *scene) SetMaterialIDs(bodyID common.ID, ids []common.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectMaterialIDs[bodyID] = ids
}

func (s *scene) MaterialIDs(bodyID common.ID, generate func(obj game_object.GameObject) []common.ID) ([]common.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ids, ok := s.objectMaterialIDs[bodyID]; ok {
		return ids, nil
	}
	obj, ok := s.objects[bodyID]
	if !ok {
		return nil, status.Errorf(status.NotFound, "body %d not found in scene %d", bodyID, s.id)
	}
	ids := generate(obj)
	s.objectMaterialIDs[bodyID] = ids
	return ids, nil
}

func (s *scene) AddCamera(id common.ID, cam camera.Camera, r renderer.Renderer) (*CameraEntry, error) {
	if cam.Width() != r.Width() || cam.Height() != r.Height() {
		return nil, status.Errorf(status.InvalidArgument, "renderer size %dx%d does not match camera size %dx%d",
			r.Width(), r.Height(), cam.Width(), cam.Height())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := &CameraEntry{
		id:       id,
		index:    len(s.cameraList),
		cam:      cam,
		renderer: r,
		timeline: s.device.CreateTimeline(0),
		cb:       s.device.CreateCommandBuffer(),
	}
	if s.fillSource != nil {
		e.fill = s.fillSource.FillInfo(s.index, e.index)
	}
	s.cameras[id] = e
	s.cameraList = append(s.cameraList, e)
	return e, nil
}

func (s *scene) Camera(id common.ID) (*CameraEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cameraLocked(id)
}

func (s *scene) cameraLocked(id common.ID) (*CameraEntry, error) {
	e, ok := s.cameras[id]
	if !ok {
		return nil, status.Errorf(status.NotFound, "camera %d not found in scene %d", id, s.id)
	}
	return e, nil
}

func (s *scene) Cameras() []*CameraEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return common.CloneSlice(s.cameraList)
}

func (s *scene) SetAmbientLight(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = color
}

func (s *scene) AmbientLight() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

func (s *scene) AddLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lights = append(s.lights, l)
}

func (s *scene) Lights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return common.CloneSlice(s.lights)
}

func (s *scene) SetEntityOrder(bodyIDs, cameraIDs []common.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects := make([]game_object.GameObject, len(bodyIDs))
	for i, id := range bodyIDs {
		obj, ok := s.objects[id]
		if !ok {
			return status.Errorf(status.NotFound, "body %d not found in scene %d", id, s.id)
		}
		objects[i] = obj
	}
	cameras := make([]*CameraEntry, len(cameraIDs))
	for i, id := range cameraIDs {
		e, err := s.cameraLocked(id)
		if err != nil {
			return err
		}
		cameras[i] = e
	}
	s.orderedObjects = objects
	s.orderedCameras = cameras
	return nil
}

func (s *scene) UpdatePoses(bodyPoses, cameraPoses []common.Pose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatePosesLocked(bodyPoses, cameraPoses)
}

func (s *scene) updatePosesLocked(bodyPoses, cameraPoses []common.Pose) error {
	if len(bodyPoses) != len(s.orderedObjects) {
		return status.Errorf(status.InvalidArgument, "body pose index out of range: got %d poses for %d ordered bodies",
			len(bodyPoses), len(s.orderedObjects))
	}
	if len(cameraPoses) != len(s.orderedCameras) {
		return status.Errorf(status.InvalidArgument, "camera pose index out of range: got %d poses for %d ordered cameras",
			len(cameraPoses), len(s.orderedCameras))
	}
	for i, p := range bodyPoses {
		s.orderedObjects[i].SetPose(p)
	}
	for i, p := range cameraPoses {
		s.orderedCameras[i].cam.SetPose(p)
	}
	return nil
}

func (s *scene) TakePicture(cameraID common.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return status.Errorf(status.NotFound, "scene %d was removed", s.id)
	}
	e, err := s.cameraLocked(cameraID)
	if err != nil {
		return err
	}
	return s.enqueueLocked(e)
}

func (s *scene) UpdateAndTakePictures(bodyPoses, cameraPoses []common.Pose, cameraIDs []common.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return status.Errorf(status.NotFound, "scene %d was removed", s.id)
	}

	entries := make([]*CameraEntry, len(cameraIDs))
	for i, id := range cameraIDs {
		e, err := s.cameraLocked(id)
		if err != nil {
			return err
		}
		entries[i] = e
	}
	if err := s.updatePosesLocked(bodyPoses, cameraPoses); err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.enqueueLocked(e); err != nil {
			return err
		}
	}
	return nil
}

// pictureJob is everything a picture task needs, captured when the picture is requested.
type pictureJob struct {
	entry *CameraEntry
	frame uint64
	input renderer.Frame
	fill  []buffer.FillInfo
}

// enqueueLocked bumps the camera's frame counter and schedules the picture. Callers hold the write lock.
func (s *scene) enqueueLocked(e *CameraEntry) error {
	job := pictureJob{
		entry: e,
		frame: e.frame.Add(1),
		input: s.captureLocked(e),
		fill:  e.FillInfo(),
	}
	if err := s.worker.submit(func() { s.runPicture(job) }); err != nil {
		// The counter is already bumped; signal the frame so waiters are not stranded.
		if serr := s.device.Submit(nil, e.timeline, job.frame); serr != nil {
			s.logger.Errorf("failed to retire frame %d of camera %d: %v", job.frame, e.id, serr)
		}
		return err
	}
	return nil
}

// captureLocked snapshots the draw list, lighting and view for one camera.
func (s *scene) captureLocked(e *CameraEntry) renderer.Frame {
	var items []renderer.DrawItem
	for _, id := range s.objectList {
		items = append(items, s.objects[id].DrawItems()...)
	}
	return renderer.Frame{
		View:  e.cam.View(),
		Items: items,
		Lighting: renderer.Lighting{
			Ambient: mgl32.Vec3(s.ambient),
			Lights:  common.CloneSlice(s.lights),
		},
	}
}

// runPicture executes on the scene worker. It waits until the camera's previous frame
// has been copied out, renders, records one copy per destination and submits with
// the new frame value. Submission happens even when rendering fails so the
// timeline always advances.
func (s *scene) runPicture(job pictureJob) {
	e := job.entry
	reached, err := e.timeline.Wait(job.frame-1, gpu.Infinite)
	if err != nil || !reached {
		s.fatal("take picture failed: waiting for frame %d of camera %d in scene %d: %v", job.frame-1, e.id, s.id, err)
		return
	}

	e.cb.Reset()
	renderErr := renderSafely(e.renderer, job.input)
	if renderErr != nil {
		s.logger.Criticalf("rendering frame %d of camera %d in scene %d failed: %v", job.frame, e.id, s.id, renderErr)
		e.renderer.Clear()
	}

	for _, fi := range job.fill {
		src := e.renderer.Target(fi.Target)
		if fi.Size > 0 && uint64(len(src)) > fi.Size {
			src = src[:fi.Size]
		}
		if err := e.cb.CopyToBuffer(src, fi.Buffer, fi.Offset); err != nil {
			s.logger.Errorf("skipping %s copy of camera %d: %v", fi.Target, e.id, err)
		}
	}

	if err := s.device.Submit(e.cb, e.timeline, job.frame); err != nil {
		s.fatal("take picture failed: submitting frame %d of camera %d in scene %d: %v", job.frame, e.id, s.id, err)
		return
	}
	if s.observer != nil {
		s.observer(FrameResult{Scene: s.id, Camera: e.id, Frame: job.frame, Err: renderErr})
	}
}

// renderSafely turns a renderer panic into an error.
func renderSafely(r renderer.Renderer, frame renderer.Frame) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = status.Errorf(status.Internal, "renderer panic: %v", p)
		}
	}()
	return r.Render(frame)
}

func (s *scene) RefreshFillInfo(source FillInfoSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fillSource = source
	for _, e := range s.cameraList {
		e.setFillInfo(source.FillInfo(s.index, e.index))
	}
}

func (s *scene) Stats() buffer.SceneStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := buffer.SceneStats{Index: s.index, Cameras: make([]buffer.CameraSize, len(s.cameraList))}
	for i, e := range s.cameraList {
		stats.Cameras[i] = buffer.CameraSize{Width: e.cam.Width(), Height: e.cam.Height()}
	}
	return stats
}

func (s *scene) Pending() ([]gpu.Timeline, []uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingLocked()
}

func (s *scene) pendingLocked() ([]gpu.Timeline, []uint64) {
	timelines := make([]gpu.Timeline, len(s.cameraList))
	values := make([]uint64, len(s.cameraList))
	for i, e := range s.cameraList {
		timelines[i] = e.timeline
		values[i] = e.FrameCounter()
	}
	return timelines, values
}

func (s *scene) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timelines, values := s.pendingLocked()
	s.mu.Unlock()

	var waitErr error
	if res, err := s.device.WaitTimelines(timelines, values, gpu.Infinite); err != nil || res != gpu.WaitSuccess {
		waitErr = status.Errorf(status.Internal, "remove scene failed: waiting for camera failed: %v", err)
	}
	s.worker.close()

	s.mu.Lock()
	objects := s.objects
	s.objects = make(map[common.ID]game_object.GameObject)
	s.objectList = nil
	s.objectMaterialIDs = make(map[common.ID][]common.ID)
	s.orderedObjects = nil
	s.mu.Unlock()

	for _, obj := range objects {
		obj.Release()
	}
	return waitErr
}
