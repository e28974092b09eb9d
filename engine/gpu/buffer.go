package gpu

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

var errExportUnsupported = errors.New("buffer export is not supported on this platform")

// ExportHandle identifies exported buffer memory for a consumer outside the device API.
// The consumer maps Fd (in-process) or Path (from another process) to read the same
// physical memory without a copy.
type ExportHandle struct {
	Fd   int
	Path string
	Size uint64
}

// hostBuffer is the implementation of the Buffer interface backed by host-visible memory.
type hostBuffer struct {
	mu       sync.Mutex
	label    string
	size     uint64
	mem      []byte
	handle   *ExportHandle
	release  func() error
	released bool
}

// Buffer is device memory that render targets are copied into.
type Buffer interface {
	// Label returns the debug label of the buffer.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Size returns the buffer size in bytes.
	//
	// Returns:
	//   - uint64: the size
	Size() uint64

	// Bytes returns the host-visible view of the buffer memory.
	//
	// Returns:
	//   - []byte: the memory view
	Bytes() []byte

	// Export returns the handle a parallel compute consumer maps to read the buffer.
	//
	// Returns:
	//   - ExportHandle: the export handle
	//   - error: an Internal error if the buffer was not created exportable or export is unsupported
	Export() (ExportHandle, error)

	// Release frees the buffer memory. Further use is invalid.
	//
	// Returns:
	//   - error: error if unmapping fails
	Release() error
}

var _ Buffer = &hostBuffer{}

// newHostBuffer allocates size bytes of host-visible memory, exportable through a
// shared memory file descriptor when requested.
func newHostBuffer(label string, size uint64, exportable bool) (*hostBuffer, error) {
	if size == 0 {
		return nil, status.Errorf(status.InvalidArgument, "empty buffer %q is not allowed", label)
	}
	mem, handle, release, err := allocateHostMemory(label, size, exportable)
	if err != nil {
		return nil, status.Errorf(status.Internal, "failed to allocate buffer %q: %v", label, err)
	}
	return &hostBuffer{
		label:   label,
		size:    size,
		mem:     mem,
		handle:  handle,
		release: release,
	}, nil
}

func (b *hostBuffer) Label() string {
	return b.label
}

func (b *hostBuffer) Size() uint64 {
	return b.size
}

func (b *hostBuffer) Bytes() []byte {
	return b.mem
}

func (b *hostBuffer) Export() (ExportHandle, error) {
	if b.handle == nil {
		return ExportHandle{}, status.Errorf(status.Internal, "buffer %q is not exportable", b.label)
	}
	return *b.handle, nil
}

func (b *hostBuffer) Release() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return nil
	}
	b.released = true
	if b.release != nil {
		return b.release()
	}
	return nil
}
