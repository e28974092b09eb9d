package buffer

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// FillInfo tells a camera where to copy one of its render targets.
type FillInfo struct {
	Target renderer.Target
	Buffer gpu.Buffer
	Offset uint64
	// Size is the byte size of the camera's region; larger frames are truncated to it.
	Size uint64
}

// OutputBuffer is an exported device buffer with its array description.
type OutputBuffer struct {
	Name   string
	Type   string
	Shape  []int
	Stride uint64
	Buffer gpu.Buffer
	Handle gpu.ExportHandle
}

// allocator is the implementation of the Allocator interface.
type allocator struct {
	mu     sync.RWMutex
	device gpu.Device
	logger log.Logger

	layout  Layout
	targets []renderer.Target
	auto    []*OutputBuffer
	// buffers holds every buffer handed out, auto-allocated ones included.
	buffers []*OutputBuffer
}

// Allocator creates the exported output buffers render targets are copied into
// and answers where each camera's frame lives inside them.
type Allocator interface {
	// AutoAllocate computes the layout from the live scenes and allocates one exported
	// buffer per target. It succeeds at most once.
	//
	// Parameters:
	//   - stats: one entry per live scene
	//   - targets: the target names (color, position, segmentation)
	//
	// Returns:
	//   - []*OutputBuffer: one buffer per target, in order
	//   - error: ResourceExhausted on a second call, InvalidArgument for bad targets or layouts, Internal on export failure
	AutoAllocate(stats []SceneStats, targets []string) ([]*OutputBuffer, error)

	// AllocateBuffer allocates one exported buffer for an arbitrary array.
	//
	// Parameters:
	//   - typ: the element type string, e.g. "<f4"
	//   - shape: the array dimensions
	//
	// Returns:
	//   - *OutputBuffer: the buffer
	//   - error: InvalidArgument for bad types or shapes, Internal on allocation or export failure
	AllocateBuffer(typ string, shape []int) (*OutputBuffer, error)

	// FillInfo returns the copy destinations of a camera, or nil before AutoAllocate
	// or when the camera lies outside the layout.
	//
	// Parameters:
	//   - sceneIndex: the scene's slot index
	//   - cameraIndex: the camera's index in its scene
	//
	// Returns:
	//   - []FillInfo: one entry per allocated target
	FillInfo(sceneIndex, cameraIndex int) []FillInfo

	// Layout returns the layout computed by AutoAllocate.
	//
	// Returns:
	//   - Layout: the layout
	//   - bool: false before AutoAllocate succeeded
	Layout() (Layout, bool)

	// Buffers returns every buffer allocated so far.
	//
	// Returns:
	//   - []*OutputBuffer: the buffers in allocation order
	Buffers() []*OutputBuffer
}

var _ Allocator = &allocator{}

// NewAllocator creates an Allocator that allocates on device.
//
// Parameters:
//   - device: the device owning the buffers
//
// Returns:
//   - Allocator: the allocator
func NewAllocator(device gpu.Device) Allocator {
	return &allocator{
		device: device,
		logger: log.New("buffer"),
	}
}

func (a *allocator) AutoAllocate(stats []SceneStats, targets []string) ([]*OutputBuffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.auto != nil {
		return nil, status.Errorf(status.ResourceExhausted, "output buffers are already allocated")
	}

	parsed := make([]renderer.Target, 0, len(targets))
	for _, name := range targets {
		t, err := renderer.ParseTarget(name)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, t)
	}

	layout, err := ComputeLayout(stats, a.logger)
	if err != nil {
		return nil, err
	}

	out := make([]*OutputBuffer, 0, len(parsed))
	for _, t := range parsed {
		b, err := a.allocate(t.Label(), t.TypeString(), layout.Shape(), layout.Size(t))
		if err != nil {
			for _, done := range out {
				done.Buffer.Release()
			}
			return nil, err
		}
		b.Name = t.String()
		b.Stride = layout.Stride(t)
		out = append(out, b)
	}

	a.layout = layout
	a.targets = parsed
	a.auto = out
	a.buffers = append(a.buffers, out...)
	a.logger.Noticef("allocated %d output buffers for %d scenes x %d cameras at %dx%d",
		len(out), layout.SceneCount(), layout.MaxCameraCount, layout.MaxWidth, layout.MaxHeight)
	return out, nil
}

func (a *allocator) AllocateBuffer(typ string, shape []int) (*OutputBuffer, error) {
	et, err := ParseType(typ)
	if err != nil {
		return nil, err
	}
	if len(shape) == 0 {
		return nil, status.Errorf(status.InvalidArgument, "buffer shape must not be empty")
	}
	size := uint64(et.Size)
	for _, d := range shape {
		if d <= 0 {
			return nil, status.Errorf(status.InvalidArgument, "invalid buffer shape %v", shape)
		}
		hi, lo := bits.Mul64(size, uint64(d))
		if hi != 0 {
			return nil, status.Errorf(status.InvalidArgument, "buffer shape %v overflows the addressable size", shape)
		}
		size = lo
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	b, err := a.allocate(fmt.Sprintf("buffer-%d", len(a.buffers)), et.String(), shape, size)
	if err != nil {
		return nil, err
	}
	a.buffers = append(a.buffers, b)
	return b, nil
}

// allocate creates and exports one buffer. Callers hold the lock.
func (a *allocator) allocate(label, typ string, shape []int, size uint64) (*OutputBuffer, error) {
	buf, err := a.device.CreateBuffer(label, size, true)
	if err != nil {
		return nil, status.Errorf(status.Internal, "failed to allocate buffer %q of %d bytes: %v", label, size, err)
	}
	handle, err := buf.Export()
	if err != nil {
		buf.Release()
		a.logger.Criticalf("failed to export buffer %q: %v", label, err)
		return nil, status.Errorf(status.Internal, "failed to export buffer %q: %v", label, err)
	}
	return &OutputBuffer{
		Name:   label,
		Type:   typ,
		Shape:  append([]int(nil), shape...),
		Buffer: buf,
		Handle: handle,
	}, nil
}

func (a *allocator) FillInfo(sceneIndex, cameraIndex int) []FillInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.auto == nil {
		return nil
	}
	if !a.layout.Contains(sceneIndex, cameraIndex) {
		a.logger.Warningf("camera %d of scene %d lies outside the output layout; its frames are not copied",
			cameraIndex, sceneIndex)
		return nil
	}
	infos := make([]FillInfo, len(a.auto))
	for i, t := range a.targets {
		infos[i] = FillInfo{
			Target: t,
			Buffer: a.auto[i].Buffer,
			Offset: a.layout.Offset(t, sceneIndex, cameraIndex),
			Size:   a.layout.Stride(t),
		}
	}
	return infos
}

func (a *allocator) Layout() (Layout, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.layout, a.auto != nil
}

func (a *allocator) Buffers() []*OutputBuffer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*OutputBuffer(nil), a.buffers...)
}
