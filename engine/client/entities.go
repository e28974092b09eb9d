package client

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// Shape is one server-side body attached to a client body at a local pose.
type Shape struct {
	ID    common.ID
	Local common.Pose
}

// Body is a client-side rigid body rendered as one or more server bodies.
type Body struct {
	mu     sync.Mutex
	pose   common.Pose
	shapes []Shape
}

// NewBody creates a body at the identity pose.
//
// Parameters:
//   - shapes: the server bodies that move with this body
//
// Returns:
//   - *Body: the body
func NewBody(shapes ...Shape) *Body {
	return &Body{pose: common.IdentityPose(), shapes: shapes}
}

// Pose returns the body-to-world pose.
func (b *Body) Pose() common.Pose {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}

// SetPose sets the body-to-world pose sent on the next step.
func (b *Body) SetPose(pose common.Pose) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pose = pose
}

// Shapes returns the attached server bodies.
func (b *Body) Shapes() []Shape {
	b.mu.Lock()
	defer b.mu.Unlock()
	return common.CloneSlice(b.shapes)
}

// worldPoses appends the world pose of every shape.
func (b *Body) worldPoses(out []common.Pose) []common.Pose {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.shapes {
		out = append(out, b.pose.Mul(s.Local))
	}
	return out
}

// Camera is a client-side handle of a server camera mounted at a local pose.
type Camera struct {
	mu    sync.Mutex
	id    common.ID
	pose  common.Pose
	local common.Pose
}

// NewCamera wraps a server camera id.
//
// Parameters:
//   - id: the server camera id
//   - local: the mount pose relative to the camera's parent pose
//
// Returns:
//   - *Camera: the camera
func NewCamera(id common.ID, local common.Pose) *Camera {
	return &Camera{id: id, pose: common.IdentityPose(), local: local}
}

// ID returns the server camera id.
func (c *Camera) ID() common.ID {
	return c.id
}

// Pose returns the parent-to-world pose.
func (c *Camera) Pose() common.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose
}

// SetPose sets the parent-to-world pose sent on the next step.
func (c *Camera) SetPose(pose common.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pose = pose
}

func (c *Camera) worldPose() common.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose.Mul(c.local)
}
