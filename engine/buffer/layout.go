package buffer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// MaxSceneIndex bounds the scene indices an output buffer can address.
const MaxSceneIndex = 1024

// MaxDimension bounds camera width and height.
const MaxDimension = camera.MaxDimension

// CameraSize is the resolution of one camera.
type CameraSize struct {
	Width  int
	Height int
}

// SceneStats describes one live scene for layout computation.
type SceneStats struct {
	Index   int
	Cameras []CameraSize
}

// Layout is the shared geometry of every output buffer: one region per
// (scene index, camera index) pair, each holding a full frame.
type Layout struct {
	MaxSceneIndex  int
	MinCameraCount int
	MaxCameraCount int
	MinWidth       int
	MaxWidth       int
	MinHeight      int
	MaxHeight      int
}

// ComputeLayout derives the output layout from the live scenes. The largest
// camera resolution and camera count size every region; mixed resolutions or
// camera counts are allowed but logged.
//
// Parameters:
//   - stats: one entry per live scene
//   - logger: receives the mixed-size warnings, may be nil
//
// Returns:
//   - Layout: the computed layout
//   - error: ResourceExhausted for too large scene indices, InvalidArgument for missing cameras or bad sizes
func ComputeLayout(stats []SceneStats, logger log.Logger) (Layout, error) {
	l := Layout{MinCameraCount: -1, MinWidth: -1, MinHeight: -1}
	for _, s := range stats {
		l.MaxSceneIndex = max(l.MaxSceneIndex, s.Index)
		n := len(s.Cameras)
		l.MaxCameraCount = max(l.MaxCameraCount, n)
		if l.MinCameraCount < 0 || n < l.MinCameraCount {
			l.MinCameraCount = n
		}
		for _, c := range s.Cameras {
			if c.Width <= 0 || c.Height <= 0 {
				return Layout{}, status.Errorf(status.InvalidArgument, "camera in scene %d has zero size %dx%d", s.Index, c.Width, c.Height)
			}
			if c.Width >= MaxDimension || c.Height >= MaxDimension {
				return Layout{}, status.Errorf(status.InvalidArgument, "camera in scene %d is too large: %dx%d", s.Index, c.Width, c.Height)
			}
			l.MaxWidth = max(l.MaxWidth, c.Width)
			l.MaxHeight = max(l.MaxHeight, c.Height)
			if l.MinWidth < 0 || c.Width < l.MinWidth {
				l.MinWidth = c.Width
			}
			if l.MinHeight < 0 || c.Height < l.MinHeight {
				l.MinHeight = c.Height
			}
		}
	}

	if l.MaxSceneIndex >= MaxSceneIndex {
		return Layout{}, status.Errorf(status.ResourceExhausted, "scene index %d exceeds the limit of %d", l.MaxSceneIndex, MaxSceneIndex)
	}
	if l.MaxCameraCount == 0 {
		return Layout{}, status.Errorf(status.InvalidArgument, "no cameras to allocate buffers for")
	}

	if logger != nil {
		if l.MinWidth != l.MaxWidth || l.MinHeight != l.MaxHeight {
			logger.Warningf("cameras have mixed sizes (%dx%d to %dx%d); regions are sized for the largest",
				l.MinWidth, l.MinHeight, l.MaxWidth, l.MaxHeight)
		}
		if l.MinCameraCount != l.MaxCameraCount {
			logger.Warningf("scenes have mixed camera counts (%d to %d)", l.MinCameraCount, l.MaxCameraCount)
		}
	}
	return l, nil
}

// SceneCount returns the number of scene slots covered by the layout.
func (l Layout) SceneCount() int {
	return l.MaxSceneIndex + 1
}

// Stride returns the byte size of one camera region for the target.
func (l Layout) Stride(t renderer.Target) uint64 {
	return uint64(l.MaxWidth) * uint64(l.MaxHeight) * renderer.TargetChannels * renderer.TargetElemSize
}

// Offset returns the byte offset of the (scene, camera) region for the target.
func (l Layout) Offset(t renderer.Target, sceneIndex, cameraIndex int) uint64 {
	return uint64(sceneIndex*l.MaxCameraCount+cameraIndex) * l.Stride(t)
}

// Size returns the total byte size of the target's buffer.
func (l Layout) Size(t renderer.Target) uint64 {
	return uint64(l.SceneCount()*l.MaxCameraCount) * l.Stride(t)
}

// Shape returns the logical array shape [scenes, cameras, height, width, channels].
func (l Layout) Shape() []int {
	return []int{l.SceneCount(), l.MaxCameraCount, l.MaxHeight, l.MaxWidth, renderer.TargetChannels}
}

// Contains reports whether the (scene, camera) pair has a region in the layout.
func (l Layout) Contains(sceneIndex, cameraIndex int) bool {
	return sceneIndex >= 0 && sceneIndex <= l.MaxSceneIndex && cameraIndex >= 0 && cameraIndex < l.MaxCameraCount
}
