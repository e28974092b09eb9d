package material

import (
	"sync"
	"sync/atomic"
)

// material is the implementation of the Material interface.
type material struct {
	mu        sync.RWMutex
	name      string
	baseColor [4]float32
	metallic  float32
	roughness float32
	specular  float32

	refs atomic.Int64
}

// Material defines the interface for a metallic-roughness render material.
//
// Surface properties are mutable at any time through the setters; readers (the
// renderer) take a consistent copy with Snapshot.
//
// A material is reference counted. Every owner (the material registry, each shape
// that draws with it) holds one reference; the material is alive while at least
// one reference is held. Materials referenced only by non-owning indices are
// considered gone once Alive reports false.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo/diffuse RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Specular retrieves the specular (fresnel) strength of the material.
	//
	// Returns:
	//   - float32: the specular factor
	Specular() float32

	// SetBaseColor sets the RGBA base color.
	//
	// Parameters:
	//   - color: the base color
	SetBaseColor(color [4]float32)

	// SetMetallic sets the metallic factor.
	//
	// Parameters:
	//   - metallic: the metallic factor
	SetMetallic(metallic float32)

	// SetRoughness sets the roughness factor.
	//
	// Parameters:
	//   - roughness: the roughness factor
	SetRoughness(roughness float32)

	// SetSpecular sets the specular factor.
	//
	// Parameters:
	//   - specular: the specular factor
	SetSpecular(specular float32)

	// Snapshot returns a consistent copy of every surface property.
	//
	// Returns:
	//   - Properties: the surface properties
	Snapshot() Properties

	// Retain adds one owner reference.
	Retain()

	// Release drops one owner reference.
	//
	// Returns:
	//   - bool: true if this released the last reference
	Release() bool

	// Alive reports whether any owner still holds a reference.
	//
	// Returns:
	//   - bool: true while referenced
	Alive() bool
}

// Properties is a value copy of a material's surface parameters.
type Properties struct {
	BaseColor [4]float32
	Metallic  float32
	Roughness float32
	Specular  float32
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// The new material holds no references; owners call Retain.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
		specular:  0.5,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.baseColor
}

func (m *material) Metallic() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metallic
}

func (m *material) Roughness() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roughness
}

func (m *material) Specular() float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.specular
}

func (m *material) SetBaseColor(color [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseColor = color
}

func (m *material) SetMetallic(metallic float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metallic = metallic
}

func (m *material) SetRoughness(roughness float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roughness = roughness
}

func (m *material) SetSpecular(specular float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.specular = specular
}

func (m *material) Snapshot() Properties {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Properties{
		BaseColor: m.baseColor,
		Metallic:  m.metallic,
		Roughness: m.roughness,
		Specular:  m.specular,
	}
}

func (m *material) Retain() {
	m.refs.Add(1)
}

func (m *material) Release() bool {
	return m.refs.Add(-1) == 0
}

func (m *material) Alive() bool {
	return m.refs.Load() > 0
}
