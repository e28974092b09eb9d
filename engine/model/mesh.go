package model

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	errEmptyMesh           = errors.New("mesh has no triangles")
	errIndexOutOfRange     = errors.New("mesh index out of range")
	errNormalCountMismatch = errors.New("normal count does not match position count")
)

// Mesh is indexed triangle geometry in model space.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Indices   []uint32

	BoundingMin mgl32.Vec3
	BoundingMax mgl32.Vec3
}

// NewMesh validates the geometry and computes its bounds.
// When normals is empty, flat normals are generated by unwelding the triangles.
//
// Parameters:
//   - name: the mesh identifier
//   - positions: the vertex positions
//   - normals: the per-vertex normals, or nil
//   - indices: the triangle list indices, length a multiple of 3
//
// Returns:
//   - *Mesh: the mesh
//   - error: error if the geometry is empty or indices are out of range
func NewMesh(name string, positions, normals []mgl32.Vec3, indices []uint32) (*Mesh, error) {
	if len(indices) < 3 || len(indices)%3 != 0 {
		return nil, fmt.Errorf("%s: %w", name, errEmptyMesh)
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return nil, fmt.Errorf("%s: %w: %d >= %d", name, errIndexOutOfRange, idx, len(positions))
		}
	}
	if len(normals) != 0 && len(normals) != len(positions) {
		return nil, fmt.Errorf("%s: %w", name, errNormalCountMismatch)
	}

	m := &Mesh{Name: name, Positions: positions, Normals: normals, Indices: indices}
	if len(normals) == 0 {
		m.flatten()
	}
	m.computeBounds()
	return m, nil
}

// TriangleCount returns the number of triangles in the mesh.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// BoundingRadius is the maximum vertex distance from the model origin.
func (m *Mesh) BoundingRadius() float32 {
	var r float32
	for _, p := range m.Positions {
		if l := p.Len(); l > r {
			r = l
		}
	}
	return r
}

func (m *Mesh) flatten() {
	positions := make([]mgl32.Vec3, 0, len(m.Indices))
	normals := make([]mgl32.Vec3, 0, len(m.Indices))
	indices := make([]uint32, 0, len(m.Indices))
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a := m.Positions[m.Indices[t]]
		b := m.Positions[m.Indices[t+1]]
		c := m.Positions[m.Indices[t+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		base := uint32(len(positions))
		positions = append(positions, a, b, c)
		normals = append(normals, n, n, n)
		indices = append(indices, base, base+1, base+2)
	}
	m.Positions, m.Normals, m.Indices = positions, normals, indices
}

func (m *Mesh) computeBounds() {
	if len(m.Positions) == 0 {
		return
	}
	lo, hi := m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	m.BoundingMin, m.BoundingMax = lo, hi
}
