package renderer

import (
	"math"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// shadedItem is the per-draw state needed while shading pixels.
type shadedItem struct {
	material     material.Properties
	alpha        float32
	segmentation [4]int32
}

// clipVertex is a vertex in camera space carrying its shading attributes.
type clipVertex struct {
	cam, world, normal mgl32.Vec3
}

// screenVertex holds perspective-divided attributes so they interpolate linearly in screen space.
type screenVertex struct {
	x, y, invZ         float32
	cam, world, normal mgl32.Vec3
}

type screenTriangle struct {
	v                      [3]screenVertex
	invArea                float32
	minX, maxX, minY, maxY int
	item                   int
}

// setupTriangles transforms, clips and projects every triangle of the frame.
func setupTriangles(frame Frame) ([]screenTriangle, []shadedItem) {
	view := frame.View.Pose.InverseMatrix()
	near := frame.View.Intrinsics.Near

	items := make([]shadedItem, 0, len(frame.Items))
	var tris []screenTriangle
	for _, it := range frame.Items {
		alpha := it.Material.BaseColor[3] * (1 - it.Transparency)
		if it.Mesh == nil || alpha <= 0 {
			continue
		}
		itemIndex := len(items)
		items = append(items, shadedItem{material: it.Material, alpha: alpha, segmentation: it.Segmentation})

		modelView := view.Mul4(it.World)
		normalMat := it.World.Mat3().Inv().Transpose()

		mesh := it.Mesh
		verts := make([]clipVertex, len(mesh.Positions))
		for i, p := range mesh.Positions {
			p4 := p.Vec4(1)
			verts[i] = clipVertex{
				cam:   modelView.Mul4x1(p4).Vec3(),
				world: it.World.Mul4x1(p4).Vec3(),
			}
			if i < len(mesh.Normals) {
				verts[i].normal = normalMat.Mul3x1(mesh.Normals[i])
			}
		}

		var poly [4]clipVertex
		for t := 0; t+2 < len(mesh.Indices); t += 3 {
			in := [3]clipVertex{verts[mesh.Indices[t]], verts[mesh.Indices[t+1]], verts[mesh.Indices[t+2]]}
			n := clipNear(in, near, &poly)
			for k := 1; k+1 < n; k++ {
				if st, ok := project(frame, poly[0], poly[k], poly[k+1]); ok {
					st.item = itemIndex
					tris = append(tris, st)
				}
			}
		}
	}
	return tris, items
}

// clipNear clips a camera-space triangle against the plane z = -near, keeping the part in front
// of the camera. The result polygon is written to out and its vertex count returned (0, 3 or 4).
func clipNear(in [3]clipVertex, near float32, out *[4]clipVertex) int {
	n := 0
	for i := 0; i < 3; i++ {
		cur, next := in[i], in[(i+1)%3]
		dc := -cur.cam.Z() - near
		dn := -next.cam.Z() - near
		if dc >= 0 {
			out[n] = cur
			n++
		}
		if (dc >= 0) != (dn >= 0) {
			s := dc / (dc - dn)
			out[n] = clipVertex{
				cam:    lerp(cur.cam, next.cam, s),
				world:  lerp(cur.world, next.world, s),
				normal: lerp(cur.normal, next.normal, s),
			}
			n++
		}
	}
	return n
}

func lerp(a, b mgl32.Vec3, s float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(s))
}

func project(frame Frame, a, b, c clipVertex) (screenTriangle, bool) {
	var st screenTriangle
	for i, v := range [3]clipVertex{a, b, c} {
		px := frame.View.Project(v.cam)
		invZ := 1 / px.Z()
		st.v[i] = screenVertex{
			x:      px.X(),
			y:      px.Y(),
			invZ:   invZ,
			cam:    v.cam.Mul(invZ),
			world:  v.world.Mul(invZ),
			normal: v.normal,
		}
	}
	area := edge(st.v[0].x, st.v[0].y, st.v[1].x, st.v[1].y, st.v[2].x, st.v[2].y)
	if area == 0 || math.IsNaN(float64(area)) {
		return st, false
	}
	st.invArea = 1 / area

	minX, maxX := st.v[0].x, st.v[0].x
	minY, maxY := st.v[0].y, st.v[0].y
	for _, v := range st.v[1:] {
		minX, maxX = min(minX, v.x), max(maxX, v.x)
		minY, maxY = min(minY, v.y), max(maxY, v.y)
	}
	// Pixel centers sit at +0.5.
	st.minX = int(math.Ceil(float64(minX) - 0.5))
	st.maxX = int(math.Floor(float64(maxX) - 0.5))
	st.minY = int(math.Ceil(float64(minY) - 0.5))
	st.maxY = int(math.Floor(float64(maxY) - 0.5))
	return st, true
}
