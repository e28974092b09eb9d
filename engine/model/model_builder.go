package model

import "github.com/Carmen-Shannon/oxy-render/engine/renderer/material"

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithShapes is an option builder that appends shapes to the Model.
//
// Parameters:
//   - shapes: the shapes to append
//
// Returns:
//   - ModelBuilderOption: a function that applies the shapes option to a model
func WithShapes(shapes ...Shape) ModelBuilderOption {
	return func(m *model) {
		m.shapes = append(m.shapes, shapes...)
	}
}

// WithMesh is an option builder that appends a single shape drawing mesh with mat.
//
// Parameters:
//   - mesh: the shape geometry
//   - mat: the shape material
//
// Returns:
//   - ModelBuilderOption: a function that applies the mesh option to a model
func WithMesh(mesh *Mesh, mat material.Material) ModelBuilderOption {
	return func(m *model) {
		m.shapes = append(m.shapes, Shape{Mesh: mesh, Material: mat})
	}
}
