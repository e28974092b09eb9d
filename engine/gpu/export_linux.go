//go:build linux

package gpu

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// allocateHostMemory maps size bytes. Exportable memory is backed by an anonymous
// memfd so other mappings of the same descriptor observe every write.
func allocateHostMemory(label string, size uint64, exportable bool) ([]byte, *ExportHandle, func() error, error) {
	if !exportable {
		return make([]byte, size), nil, nil, nil
	}

	fd, err := unix.MemfdCreate(label, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, nil, nil, fmt.Errorf("ftruncate: %w", err)
	}
	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, nil, nil, fmt.Errorf("mmap: %w", err)
	}

	handle := &ExportHandle{
		Fd:   fd,
		Path: fmt.Sprintf("/proc/%d/fd/%d", os.Getpid(), fd),
		Size: size,
	}
	release := func() error {
		if err := unix.Munmap(mem); err != nil {
			return err
		}
		return unix.Close(fd)
	}
	return mem, handle, release, nil
}

// Mapping is a read-only view of exported buffer memory.
type Mapping struct {
	mem  []byte
	file *os.File
}

// MapExport maps exported memory read-only without copying it.
// Path is preferred since it also works from another process; Fd is used when Path is empty.
//
// Parameters:
//   - h: the export handle
//
// Returns:
//   - *Mapping: the mapping
//   - error: error if the memory cannot be mapped
func MapExport(h ExportHandle) (*Mapping, error) {
	if h.Size == 0 {
		return nil, fmt.Errorf("export handle has zero size")
	}
	fd := h.Fd
	var file *os.File
	if h.Path != "" {
		f, err := os.Open(h.Path)
		if err != nil {
			return nil, fmt.Errorf("open export %q: %w", h.Path, err)
		}
		file = f
		fd = int(f.Fd())
	}
	mem, err := unix.Mmap(fd, 0, int(h.Size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("mmap export: %w", err)
	}
	return &Mapping{mem: mem, file: file}, nil
}

// Bytes returns the mapped memory.
func (m *Mapping) Bytes() []byte {
	return m.mem
}

// Close unmaps the memory.
func (m *Mapping) Close() error {
	err := unix.Munmap(m.mem)
	if m.file != nil {
		m.file.Close()
	}
	return err
}
