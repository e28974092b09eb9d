package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfLoaderBackend imports glTF/GLB files. Node transforms are baked into the vertex data and
// each triangle primitive becomes one ImportedMesh.
type gltfLoaderBackend struct{}

var _ loaderBackend = &gltfLoaderBackend{}

func newGLTFLoaderBackend() *gltfLoaderBackend {
	return &gltfLoaderBackend{}
}

func (b *gltfLoaderBackend) Load(path string) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	if err := parser.parse(path); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return b.importDocument(parser, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (b *gltfLoaderBackend) LoadReader(name string, r io.Reader, baseDir string) (*model.ImportedModel, error) {
	parser := newGLTFParser()
	isGLB := strings.EqualFold(filepath.Ext(name), ".glb")
	if err := parser.parseReader(r, baseDir, isGLB); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return b.importDocument(parser, name)
}

func (b *gltfLoaderBackend) importDocument(p *gltfParser, name string) (*model.ImportedModel, error) {
	doc := p.document
	out := &model.ImportedModel{Name: name}
	for _, m := range doc.Materials {
		out.Materials = append(out.Materials, convertGLTFMaterial(m))
	}

	roots := gltfRootNodes(doc)
	visited := make(map[int]bool, len(doc.Nodes))
	var walk func(node int, parent mgl32.Mat4) error
	walk = func(node int, parent mgl32.Mat4) error {
		if node < 0 || node >= len(doc.Nodes) || visited[node] {
			return fmt.Errorf("node %d: invalid or cyclic hierarchy", node)
		}
		visited[node] = true
		n := &doc.Nodes[node]
		world := parent.Mul4(gltfNodeMatrix(n))

		if n.Mesh != nil {
			if *n.Mesh >= len(doc.Meshes) {
				return fmt.Errorf("node %d references missing mesh %d", node, *n.Mesh)
			}
			meshes, err := b.importMesh(p, &doc.Meshes[*n.Mesh], world)
			if err != nil {
				return fmt.Errorf("node %d: %w", node, err)
			}
			out.Meshes = append(out.Meshes, meshes...)
		}
		for _, c := range n.Children {
			if err := walk(c, world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *gltfLoaderBackend) importMesh(p *gltfParser, mesh *gltfMesh, world mgl32.Mat4) ([]model.ImportedMesh, error) {
	normalMat := world.Mat3().Inv().Transpose()

	var out []model.ImportedMesh
	for i, prim := range mesh.Primitives {
		mode := gltfPrimitiveModeTriangles
		if prim.Mode != nil {
			mode = *prim.Mode
		}
		if mode != gltfPrimitiveModeTriangles && mode != gltfPrimitiveModeTriangleStrip && mode != gltfPrimitiveModeTriangleFan {
			continue
		}

		posAcc, ok := prim.Attributes["POSITION"]
		if !ok {
			return nil, fmt.Errorf("mesh %q primitive %d has no POSITION attribute", mesh.Name, i)
		}
		positions, err := p.readVec3(posAcc)
		if err != nil {
			return nil, err
		}
		for j := range positions {
			positions[j] = world.Mul4x1(positions[j].Vec4(1)).Vec3()
		}

		var normals []mgl32.Vec3
		if nAcc, ok := prim.Attributes["NORMAL"]; ok {
			if normals, err = p.readVec3(nAcc); err != nil {
				return nil, err
			}
			for j := range normals {
				if n := normalMat.Mul3x1(normals[j]); n.Len() > 0 {
					normals[j] = n.Normalize()
				}
			}
		}

		var indices []uint32
		if prim.Indices != nil {
			if indices, err = p.readIndices(*prim.Indices); err != nil {
				return nil, err
			}
		} else {
			indices = make([]uint32, len(positions))
			for j := range indices {
				indices[j] = uint32(j)
			}
		}

		matIndex := -1
		if prim.Material != nil {
			matIndex = *prim.Material
		}
		out = append(out, model.ImportedMesh{
			Name:          fmt.Sprintf("%s_%d", mesh.Name, i),
			Positions:     positions,
			Normals:       normals,
			Indices:       triangulate(indices, mode),
			MaterialIndex: matIndex,
		})
	}
	return out, nil
}

// triangulate expands strips and fans into a triangle list.
func triangulate(indices []uint32, mode int) []uint32 {
	switch mode {
	case gltfPrimitiveModeTriangleStrip:
		var out []uint32
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				out = append(out, indices[i], indices[i+1], indices[i+2])
			} else {
				out = append(out, indices[i+1], indices[i], indices[i+2])
			}
		}
		return out
	case gltfPrimitiveModeTriangleFan:
		var out []uint32
		for i := 1; i+1 < len(indices); i++ {
			out = append(out, indices[0], indices[i], indices[i+1])
		}
		return out
	}
	return indices
}

// gltfRootNodes returns the root nodes of the default scene, or of the first scene, or every
// parentless node when the document declares no scenes.
func gltfRootNodes(doc *gltfDocument) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// gltfNodeMatrix returns the node's local transform.
func gltfNodeMatrix(n *gltfNode) mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if n.Rotation != nil {
		r := n.Rotation
		m = m.Mul4(mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}.Normalize().Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

func convertGLTFMaterial(m gltfMaterial) common.ImportedMaterial {
	out := common.DefaultImportedMaterial()
	out.Name = m.Name
	out.Metallic = 1
	out.Roughness = 1
	if pbr := m.PbrMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			out.BaseColor = *pbr.BaseColorFactor
		}
		if pbr.MetallicFactor != nil {
			out.Metallic = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			out.Roughness = *pbr.RoughnessFactor
		}
	}
	if ext := m.Extensions; ext != nil && ext.Specular != nil && ext.Specular.SpecularFactor != nil {
		out.Specular = *ext.Specular.SpecularFactor * 0.5
	}
	return out
}
