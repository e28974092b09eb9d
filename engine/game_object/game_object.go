package game_object

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	mu sync.RWMutex

	id           common.ID
	mdl          model.Model
	pose         common.Pose
	scale        mgl32.Vec3
	segmentation [4]uint32
	transparency float32
}

// GameObject defines the interface for a body placed in a scene: a Model of shapes,
// a rigid pose, a per-axis scale and the per-body render attributes
// (segmentation labels and transparency).
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - common.ID: the object ID
	ID() common.ID

	// Model returns the Model associated with this object, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Pose returns the object's current position and rotation.
	//
	// Returns:
	//   - common.Pose: the pose
	Pose() common.Pose

	// SetPose replaces the object's position and rotation.
	//
	// Parameters:
	//   - pose: the new pose
	SetPose(pose common.Pose)

	// Scale returns the object's per-axis scale.
	//
	// Returns:
	//   - mgl32.Vec3: the scale
	Scale() mgl32.Vec3

	// SetScale updates the object's per-axis scale.
	//
	// Parameters:
	//   - sx, sy, sz: new scale factors
	SetScale(sx, sy, sz float32)

	// Segmentation returns the four segmentation channels written for this object.
	//
	// Returns:
	//   - [4]uint32: the segmentation labels
	Segmentation() [4]uint32

	// SetSegmentation sets the two segmentation labels. The last two channels stay zero.
	//
	// Parameters:
	//   - seg0: the first label (usually the body id)
	//   - seg1: the second label (usually the class id)
	SetSegmentation(seg0, seg1 uint32)

	// Transparency returns the object's transparency, 0 opaque to 1 invisible.
	//
	// Returns:
	//   - float32: the transparency
	Transparency() float32

	// SetTransparency sets the object's transparency, clamped to [0, 1].
	//
	// Parameters:
	//   - t: the transparency
	SetTransparency(t float32)

	// ModelMatrix returns the model-to-world transform including scale.
	//
	// Returns:
	//   - mgl32.Mat4: the transform
	ModelMatrix() mgl32.Mat4

	// DrawItems captures one draw item per shape with the current transform and materials.
	//
	// Returns:
	//   - []renderer.DrawItem: the draw items, nil when the object has no model
	DrawItems() []renderer.DrawItem

	// Release drops the object's references to its shape materials.
	Release()
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects start at the identity pose with unit scale and full opacity.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		pose:  common.IdentityPose(),
		scale: mgl32.Vec3{1, 1, 1},
	}
	for _, option := range options {
		option(obj)
	}
	if obj.id == 0 {
		obj.id = common.NextID()
	}
	return obj
}

func (g *gameObject) ID() common.ID {
	return g.id
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) Pose() common.Pose {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pose
}

func (g *gameObject) SetPose(pose common.Pose) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pose = pose
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = mgl32.Vec3{sx, sy, sz}
}

func (g *gameObject) Segmentation() [4]uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.segmentation
}

func (g *gameObject) SetSegmentation(seg0, seg1 uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.segmentation = [4]uint32{seg0, seg1, 0, 0}
}

func (g *gameObject) Transparency() float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.transparency
}

func (g *gameObject) SetTransparency(t float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transparency = mgl32.Clamp(t, 0, 1)
}

func (g *gameObject) ModelMatrix() mgl32.Mat4 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return common.ModelMatrix(g.pose, g.scale)
}

func (g *gameObject) DrawItems() []renderer.DrawItem {
	if g.mdl == nil {
		return nil
	}
	g.mu.RLock()
	world := common.ModelMatrix(g.pose, g.scale)
	transparency := g.transparency
	seg := g.segmentation
	g.mu.RUnlock()

	shapes := g.mdl.Shapes()
	items := make([]renderer.DrawItem, 0, len(shapes))
	for _, s := range shapes {
		if s.Mesh == nil {
			continue
		}
		item := renderer.DrawItem{
			World:        world,
			Mesh:         s.Mesh,
			Transparency: transparency,
			Segmentation: [4]int32{int32(seg[0]), int32(seg[1]), int32(seg[2]), int32(seg[3])},
		}
		if s.Material != nil {
			item.Material = s.Material.Snapshot()
		} else {
			item.Material.BaseColor = [4]float32{1, 1, 1, 1}
		}
		items = append(items, item)
	}
	return items
}

func (g *gameObject) Release() {
	if g.mdl != nil {
		g.mdl.Release()
	}
}
