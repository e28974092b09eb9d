package buffer

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// Reader is the compute-side view of one exported target buffer. It maps the
// exported memory directly, so reads observe the device's copies without any
// transfer through the server.
type Reader struct {
	mapping *gpu.Mapping
	layout  Layout
	target  renderer.Target
}

// OpenReader maps an auto-allocated target buffer.
//
// Parameters:
//   - handle: the buffer's export handle
//   - layout: the layout the buffer was allocated with
//   - target: the target stored in the buffer
//
// Returns:
//   - *Reader: the reader
//   - error: Internal if the memory cannot be mapped
func OpenReader(handle gpu.ExportHandle, layout Layout, target renderer.Target) (*Reader, error) {
	m, err := gpu.MapExport(handle)
	if err != nil {
		return nil, status.Errorf(status.Internal, "failed to map output buffer: %v", err)
	}
	return &Reader{mapping: m, layout: layout, target: target}, nil
}

// Region returns the raw bytes of one camera's frame.
func (r *Reader) Region(sceneIndex, cameraIndex int) []byte {
	off := r.layout.Offset(r.target, sceneIndex, cameraIndex)
	return r.mapping.Bytes()[off : off+r.layout.Stride(r.target)]
}

// Float32At reads one float channel of a pixel.
func (r *Reader) Float32At(sceneIndex, cameraIndex, y, x, ch int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(r.at(sceneIndex, cameraIndex, y, x, ch)))
}

// Int32At reads one integer channel of a pixel.
func (r *Reader) Int32At(sceneIndex, cameraIndex, y, x, ch int) int32 {
	return int32(binary.LittleEndian.Uint32(r.at(sceneIndex, cameraIndex, y, x, ch)))
}

func (r *Reader) at(sceneIndex, cameraIndex, y, x, ch int) []byte {
	pixel := uint64((y*r.layout.MaxWidth+x)*renderer.TargetChannels+ch) * renderer.TargetElemSize
	off := r.layout.Offset(r.target, sceneIndex, cameraIndex) + pixel
	return r.mapping.Bytes()[off : off+renderer.TargetElemSize]
}

// Close unmaps the buffer.
func (r *Reader) Close() error {
	return r.mapping.Close()
}
