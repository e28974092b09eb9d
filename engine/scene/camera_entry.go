package scene

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// CameraEntry is a camera registered in a scene together with the resources that
// pace its pictures: a frame counter bumped per request, a completion timeline
// the device signals per finished frame, and one reusable command buffer.
// The command buffer is only touched by the scene's worker.
type CameraEntry struct {
	id       common.ID
	index    int
	cam      camera.Camera
	renderer renderer.Renderer
	timeline gpu.Timeline
	cb       gpu.CommandBuffer

	frame atomic.Uint64

	fillMu sync.RWMutex
	fill   []buffer.FillInfo
}

// ID returns the camera id.
func (e *CameraEntry) ID() common.ID {
	return e.id
}

// Index returns the camera's position in its scene, which selects its output region.
func (e *CameraEntry) Index() int {
	return e.index
}

// Camera returns the camera node.
func (e *CameraEntry) Camera() camera.Camera {
	return e.cam
}

// Renderer returns the camera's renderer.
func (e *CameraEntry) Renderer() renderer.Renderer {
	return e.renderer
}

// Timeline returns the camera's completion timeline.
func (e *CameraEntry) Timeline() gpu.Timeline {
	return e.timeline
}

// FrameCounter returns the number of pictures requested so far.
func (e *CameraEntry) FrameCounter() uint64 {
	return e.frame.Load()
}

// FillInfo returns a copy of the camera's copy destinations.
func (e *CameraEntry) FillInfo() []buffer.FillInfo {
	e.fillMu.RLock()
	defer e.fillMu.RUnlock()
	return append([]buffer.FillInfo(nil), e.fill...)
}

func (e *CameraEntry) setFillInfo(fill []buffer.FillInfo) {
	e.fillMu.Lock()
	defer e.fillMu.Unlock()
	e.fill = fill
}
