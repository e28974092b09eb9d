package game_object

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject. Objects without an explicit ID get a fresh one.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id common.ID) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithModel sets the Model for this GameObject.
//
// Parameters:
//   - m: the Model to associate
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Model
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.mdl = m
	}
}

// WithPose sets the initial pose of the GameObject.
//
// Parameters:
//   - pose: the initial position and rotation
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the pose
func WithPose(pose common.Pose) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.pose = pose
	}
}

// WithScale sets the initial per-axis scale of the GameObject.
//
// Parameters:
//   - scale: the scale factors
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the scale
func WithScale(scale [3]float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.scale = mgl32.Vec3(scale)
	}
}

// WithSegmentation sets the two segmentation labels of the GameObject.
//
// Parameters:
//   - seg0: the first label
//   - seg1: the second label
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the labels
func WithSegmentation(seg0, seg1 uint32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.segmentation = [4]uint32{seg0, seg1, 0, 0}
	}
}

// WithTransparency sets the initial transparency, 0 opaque to 1 invisible.
//
// Parameters:
//   - t: the transparency
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the transparency
func WithTransparency(t float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.transparency = mgl32.Clamp(t, 0, 1)
	}
}
