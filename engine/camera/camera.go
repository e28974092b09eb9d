package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/go-gl/mathgl/mgl32"
)

// MaxDimension is the exclusive upper bound of camera width and height.
const MaxDimension = 16384

// Intrinsics are the pinhole projection parameters of a camera, in pixels.
type Intrinsics struct {
	Near float32
	Far  float32
	Fx   float32
	Fy   float32
	Cx   float32
	Cy   float32
	Skew float32
}

// Validate reports whether the intrinsics describe a usable projection.
//
// Returns:
//   - error: InvalidArgument describing the first bad field, nil otherwise
func (in Intrinsics) Validate() error {
	switch {
	case in.Near <= 0:
		return status.Errorf(status.InvalidArgument, "near plane must be positive, got %g", in.Near)
	case in.Far <= in.Near:
		return status.Errorf(status.InvalidArgument, "far plane %g must be beyond near plane %g", in.Far, in.Near)
	case in.Fx == 0 || in.Fy == 0:
		return status.Errorf(status.InvalidArgument, "focal lengths must be non-zero, got fx=%g fy=%g", in.Fx, in.Fy)
	}
	return nil
}

// View is an immutable copy of everything needed to render from a camera.
type View struct {
	Pose       common.Pose
	Intrinsics Intrinsics
	Width      int
	Height     int
}

// Project maps a camera-space point to pixel coordinates.
// The camera looks down -Z with +Y up; pixel rows grow downwards.
//
// Parameters:
//   - p: the point in camera space
//
// Returns:
//   - mgl32.Vec3: pixel x, pixel y and the positive view depth
func (v View) Project(p mgl32.Vec3) mgl32.Vec3 {
	depth := -p.Z()
	xn := p.X() / depth
	yn := -p.Y() / depth
	in := v.Intrinsics
	return mgl32.Vec3{in.Cx + in.Fx*xn + in.Skew*yn, in.Cy + in.Fy*yn, depth}
}

type cameraImpl struct {
	mu *sync.Mutex

	width, height int
	intrinsics    Intrinsics
	pose          common.Pose
}

// Camera defines the interface for a render camera.
// A camera is a posed pinhole sensor of a fixed pixel size. The size is chosen at creation and
// never changes; the intrinsics and the pose may be updated at any time.
type Camera interface {
	// Width returns the image width in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the image height in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// Intrinsics returns the projection parameters.
	//
	// Returns:
	//   - Intrinsics: the intrinsics
	Intrinsics() Intrinsics

	// SetIntrinsics replaces the projection parameters, keeping the image size.
	//
	// Parameters:
	//   - in: the new intrinsics
	//
	// Returns:
	//   - error: InvalidArgument if the intrinsics are unusable
	SetIntrinsics(in Intrinsics) error

	// Pose returns the camera-to-world pose.
	//
	// Returns:
	//   - common.Pose: the pose
	Pose() common.Pose

	// SetPose sets the camera-to-world pose.
	//
	// Parameters:
	//   - pose: the new pose
	SetPose(pose common.Pose)

	// ViewMatrix returns the world-to-camera transform.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the OpenGL-style clip-space projection equivalent to the intrinsics.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// View returns a consistent copy of pose, intrinsics and size.
	//
	// Returns:
	//   - View: the view snapshot
	View() View
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the given options applied.
// Unset intrinsics default to a near plane of 0.1, a far plane of 100, focal lengths equal to the
// image height and the principal point at the image center.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
//   - error: InvalidArgument if the size or intrinsics are unusable
func NewCamera(options ...CameraBuilderOption) (Camera, error) {
	c := &cameraImpl{
		mu:   &sync.Mutex{},
		pose: common.IdentityPose(),
	}
	for _, option := range options {
		option(c)
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, status.Errorf(status.InvalidArgument, "camera size must be positive, got %dx%d", c.width, c.height)
	}
	if c.width >= MaxDimension || c.height >= MaxDimension {
		return nil, status.Errorf(status.InvalidArgument, "camera size %dx%d exceeds the limit of %d", c.width, c.height, MaxDimension)
	}

	c.intrinsics.Near = common.Coalesce(c.intrinsics.Near, 0.1)
	c.intrinsics.Far = common.Coalesce(c.intrinsics.Far, 100)
	c.intrinsics.Fx = common.Coalesce(c.intrinsics.Fx, float32(c.height))
	c.intrinsics.Fy = common.Coalesce(c.intrinsics.Fy, float32(c.height))
	c.intrinsics.Cx = common.Coalesce(c.intrinsics.Cx, float32(c.width)/2)
	c.intrinsics.Cy = common.Coalesce(c.intrinsics.Cy, float32(c.height)/2)
	if err := c.intrinsics.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *cameraImpl) Width() int {
	return c.width
}

func (c *cameraImpl) Height() int {
	return c.height
}

func (c *cameraImpl) Intrinsics() Intrinsics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intrinsics
}

func (c *cameraImpl) SetIntrinsics(in Intrinsics) error {
	if err := in.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.intrinsics = in
	return nil
}

func (c *cameraImpl) Pose() common.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose
}

func (c *cameraImpl) SetPose(pose common.Pose) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pose = pose
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	return c.Pose().InverseMatrix()
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	in := c.Intrinsics()
	w, h := float32(c.width), float32(c.height)
	n, f := in.Near, in.Far

	// Pixel coordinates map to NDC with y flipped, so the principal point lands at the image center.
	var p mgl32.Mat4
	p.Set(0, 0, 2*in.Fx/w)
	p.Set(0, 1, -2*in.Skew/w)
	p.Set(0, 2, 1-2*in.Cx/w)
	p.Set(1, 1, 2*in.Fy/h)
	p.Set(1, 2, 2*in.Cy/h-1)
	p.Set(2, 2, -(f+n)/(f-n))
	p.Set(2, 3, -2*f*n/(f-n))
	p.Set(3, 2, -1)
	return p
}

func (c *cameraImpl) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{Pose: c.pose, Intrinsics: c.intrinsics, Width: c.width, Height: c.height}
}
