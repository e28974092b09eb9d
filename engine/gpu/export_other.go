//go:build !linux

package gpu

// allocateHostMemory falls back to process memory; export needs memfd support.
func allocateHostMemory(label string, size uint64, exportable bool) ([]byte, *ExportHandle, func() error, error) {
	if exportable {
		return nil, nil, nil, errExportUnsupported
	}
	return make([]byte, size), nil, nil, nil
}

// Mapping is a read-only view of exported buffer memory.
type Mapping struct {
	mem []byte
}

// MapExport is unsupported on this platform.
func MapExport(h ExportHandle) (*Mapping, error) {
	return nil, errExportUnsupported
}

// Bytes returns the mapped memory.
func (m *Mapping) Bytes() []byte {
	return m.mem
}

// Close unmaps the memory.
func (m *Mapping) Close() error {
	return nil
}
