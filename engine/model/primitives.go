package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// profilePoint is one point of a lathe profile: an axial coordinate along X, a radial distance
// from the X axis, and the outward normal expressed in the same (axial, radial) frame.
type profilePoint struct {
	x, r   float32
	nx, nr float32
}

// CreateCube returns the cube spanning [-1, 1] on every axis with one flat-shaded quad per face.
//
// Returns:
//   - *Mesh: the cube mesh (24 vertices, 12 triangles)
func CreateCube() *Mesh {
	faces := [6][3]mgl32.Vec3{
		// normal, u, v with u x v == normal
		{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
		{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
		{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}},
	}
	m := &Mesh{Name: "box"}
	for _, f := range faces {
		n, u, v := f[0], f[1], f[2]
		base := uint32(len(m.Positions))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			m.Positions = append(m.Positions, n.Add(u.Mul(c[0])).Add(v.Mul(c[1])))
			m.Normals = append(m.Normals, n)
		}
		m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	m.computeBounds()
	return m
}

// CreateUVSphere returns a unit sphere built from latitude rings and longitude segments.
//
// Parameters:
//   - segments: the number of longitude segments
//   - rings: the number of latitude rings between the poles
//
// Returns:
//   - *Mesh: the sphere mesh
func CreateUVSphere(segments, rings int) *Mesh {
	segments = max(segments, 3)
	rings = max(rings, 2)
	profile := make([]profilePoint, 0, rings+1)
	for i := 0; i <= rings; i++ {
		theta := math.Pi * float64(i) / float64(rings)
		x, r := -float32(math.Cos(theta)), float32(math.Sin(theta))
		profile = append(profile, profilePoint{x: x, r: r, nx: x, nr: r})
	}
	m := &Mesh{Name: "sphere"}
	m.lathe(profile, segments)
	m.computeBounds()
	return m
}

// CreateYZPlane returns the double-sided quad spanning [-1, 1] in Y and Z with its normal along +X.
//
// Returns:
//   - *Mesh: the plane mesh
func CreateYZPlane() *Mesh {
	n := mgl32.Vec3{1, 0, 0}
	m := &Mesh{
		Name: "plane",
		Positions: []mgl32.Vec3{
			{0, -1, -1}, {0, 1, -1}, {0, 1, 1}, {0, -1, 1},
		},
		Normals: []mgl32.Vec3{n, n, n, n},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	m.computeBounds()
	return m
}

// CreateCapsule returns a capsule whose axis is X: a cylinder of the given radius spanning
// [-halfLength, halfLength] capped by two hemispheres.
//
// Parameters:
//   - radius: the capsule radius
//   - halfLength: half the length of the cylindrical section
//   - segments: the number of segments around the axis
//   - halfRings: the number of rings per hemisphere
//
// Returns:
//   - *Mesh: the capsule mesh
func CreateCapsule(radius, halfLength float32, segments, halfRings int) *Mesh {
	segments = max(segments, 3)
	halfRings = max(halfRings, 1)
	profile := make([]profilePoint, 0, 2*(halfRings+1))
	for k := 0; k <= halfRings; k++ {
		a := 0.5 * math.Pi * float64(k) / float64(halfRings)
		c, s := float32(math.Cos(a)), float32(math.Sin(a))
		profile = append(profile, profilePoint{x: -halfLength - radius*c, r: radius * s, nx: -c, nr: s})
	}
	for k := halfRings; k >= 0; k-- {
		a := 0.5 * math.Pi * float64(k) / float64(halfRings)
		c, s := float32(math.Cos(a)), float32(math.Sin(a))
		profile = append(profile, profilePoint{x: halfLength + radius*c, r: radius * s, nx: c, nr: s})
	}
	m := &Mesh{Name: "capsule"}
	m.lathe(profile, segments)
	m.computeBounds()
	return m
}

// CreateCylinder returns the closed cylinder of radius 1 whose axis is X, spanning [-1, 1].
//
// Parameters:
//   - segments: the number of segments around the axis
//
// Returns:
//   - *Mesh: the cylinder mesh
func CreateCylinder(segments int) *Mesh {
	segments = max(segments, 3)
	m := &Mesh{Name: "cylinder"}
	m.lathe([]profilePoint{{x: -1, r: 1, nr: 1}, {x: 1, r: 1, nr: 1}}, segments)
	m.disc(-1, 1, segments)
	m.disc(1, 1, segments)
	m.computeBounds()
	return m
}

// lathe revolves profile around the X axis, appending one ring of segments+1 vertices per
// profile point and stitching consecutive rings with quads.
func (m *Mesh) lathe(profile []profilePoint, segments int) {
	base := uint32(len(m.Positions))
	stride := uint32(segments + 1)
	for _, p := range profile {
		for j := 0; j <= segments; j++ {
			phi := 2 * math.Pi * float64(j) / float64(segments)
			c, s := float32(math.Cos(phi)), float32(math.Sin(phi))
			m.Positions = append(m.Positions, mgl32.Vec3{p.x, p.r * c, p.r * s})
			m.Normals = append(m.Normals, mgl32.Vec3{p.nx, p.nr * c, p.nr * s}.Normalize())
		}
	}
	for i := 0; i+1 < len(profile); i++ {
		for j := uint32(0); j < uint32(segments); j++ {
			a := base + uint32(i)*stride + j
			b := a + stride
			m.Indices = append(m.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
}

// disc appends a flat cap at axial position x facing away from the origin.
func (m *Mesh) disc(x, radius float32, segments int) {
	n := mgl32.Vec3{1, 0, 0}
	if x < 0 {
		n = mgl32.Vec3{-1, 0, 0}
	}
	center := uint32(len(m.Positions))
	m.Positions = append(m.Positions, mgl32.Vec3{x, 0, 0})
	m.Normals = append(m.Normals, n)
	for j := 0; j < segments; j++ {
		phi := 2 * math.Pi * float64(j) / float64(segments)
		m.Positions = append(m.Positions, mgl32.Vec3{x, radius * float32(math.Cos(phi)), radius * float32(math.Sin(phi))})
		m.Normals = append(m.Normals, n)
	}
	for j := 0; j < segments; j++ {
		a := center + 1 + uint32(j)
		b := center + 1 + uint32((j+1)%segments)
		m.Indices = append(m.Indices, center, a, b)
	}
}
