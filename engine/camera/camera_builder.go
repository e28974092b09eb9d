package camera

import "github.com/Carmen-Shannon/oxy-render/common"

// CameraBuilderOption is a function that configures a camera during construction.
type CameraBuilderOption func(*cameraImpl)

// WithSize sets the image size in pixels.
//
// Parameters:
//   - width: the image width
//   - height: the image height
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's size
func WithSize(width, height int) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.width = width
		c.height = height
	}
}

// WithIntrinsics sets the projection parameters. Zero fields take the defaults.
//
// Parameters:
//   - in: the intrinsics
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's intrinsics
func WithIntrinsics(in Intrinsics) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.intrinsics = in
	}
}

// WithPose sets the initial camera-to-world pose.
//
// Parameters:
//   - pose: the pose
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's pose
func WithPose(pose common.Pose) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.pose = pose
	}
}
