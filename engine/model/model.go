package model

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// model is the implementation of the Model interface.
type model struct {
	name           string
	shapes         []Shape
	boundingRadius float32
	releaseOnce    sync.Once
}

// Model defines the interface for the geometry of one body.
// A Model is an ordered list of shapes, each a mesh paired with the material it is drawn with.
// The model holds one reference on every shape material until Release is called.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// ShapeCount returns the number of shapes in the model.
	//
	// Returns:
	//   - int: the shape count
	ShapeCount() int

	// Shape retrieves a shape by index.
	//
	// Parameters:
	//   - index: the shape index
	//
	// Returns:
	//   - Shape: the shape
	//   - error: InvalidArgument if index is out of range
	Shape(index int) (Shape, error)

	// Shapes returns a copy of the shape list.
	//
	// Returns:
	//   - []Shape: the shapes
	Shapes() []Shape

	// BoundingRadius returns the bounding sphere radius for this model, measured as
	// the maximum vertex distance from the origin over every shape.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// Release drops the references the model holds on its shape materials. Safe to call more than once.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// Every shape material is retained once.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	for _, s := range m.shapes {
		if s.Material != nil {
			s.Material.Retain()
		}
		if s.Mesh != nil {
			m.boundingRadius = max(m.boundingRadius, s.Mesh.BoundingRadius())
		}
	}
	return m
}

// FromImported builds a Model from imported data with fresh materials, so that per-body
// material edits never leak into other bodies sharing the same imported file.
//
// Parameters:
//   - imp: the imported model
//
// Returns:
//   - Model: the model
//   - error: error if any imported mesh is invalid
func FromImported(imp *ImportedModel) (Model, error) {
	mats := make([]material.Material, len(imp.Materials))
	for i, im := range imp.Materials {
		mats[i] = material.NewMaterial(material.FromImported(im)...)
	}

	shapes := make([]Shape, 0, len(imp.Meshes))
	for _, im := range imp.Meshes {
		mesh, err := NewMesh(im.Name, im.Positions, im.Normals, im.Indices)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", imp.Name, err)
		}
		var mat material.Material
		if im.MaterialIndex >= 0 && im.MaterialIndex < len(mats) {
			mat = mats[im.MaterialIndex]
		} else {
			mat = material.NewMaterial(material.FromImported(common.DefaultImportedMaterial())...)
		}
		shapes = append(shapes, Shape{Mesh: mesh, Material: mat})
	}
	return NewModel(WithName(imp.Name), WithShapes(shapes...)), nil
}

func (m *model) Name() string {
	return m.name
}

func (m *model) ShapeCount() int {
	return len(m.shapes)
}

func (m *model) Shape(index int) (Shape, error) {
	if index < 0 || index >= len(m.shapes) {
		return Shape{}, status.Errorf(status.InvalidArgument, "shape index %d out of range [0, %d)", index, len(m.shapes))
	}
	return m.shapes[index], nil
}

func (m *model) Shapes() []Shape {
	return common.CloneSlice(m.shapes)
}

func (m *model) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *model) Release() {
	m.releaseOnce.Do(func() {
		for _, s := range m.shapes {
			if s.Material != nil {
				s.Material.Release()
			}
		}
	})
}
