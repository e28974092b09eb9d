package model

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// --- Import Types ---

// ImportedModel represents a 3D model loaded from an external format.
// This is the universal format that importers (OBJ, glTF) produce. It is immutable once
// produced and may be shared between bodies; FromImported builds a per-body Model from it.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Meshes contains all mesh data (may have multiple meshes/submeshes).
	Meshes []ImportedMesh

	// Materials are referenced materials (indices into a material library).
	Materials []common.ImportedMaterial
}

// ImportedMesh represents a single mesh within an imported model.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// Positions are the vertex positions in model space.
	Positions []mgl32.Vec3

	// Normals are the per-vertex normals. May be empty, in which case flat normals are derived.
	Normals []mgl32.Vec3

	// Indices are the triangle indices.
	Indices []uint32

	// MaterialIndex references ImportedModel.Materials, -1 for none.
	MaterialIndex int
}

// Shape is one drawable part of a model: a mesh drawn with one material.
type Shape struct {
	// Mesh is the triangle geometry.
	Mesh *Mesh

	// Material is the surface used to shade the mesh.
	Material material.Material
}
