package renderer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/go-gl/mathgl/mgl32"
)

// DrawItem is one shape of one body, captured by value when a picture is requested.
type DrawItem struct {
	// World is the model-to-world transform including scale.
	World mgl32.Mat4

	// Mesh is the immutable shape geometry.
	Mesh *model.Mesh

	// Material is the shape's surface at capture time.
	Material material.Properties

	// Transparency ranges from 0 (opaque) to 1 (invisible).
	Transparency float32

	// Segmentation is written verbatim into the segmentation target.
	Segmentation [4]int32
}

// Lighting is the scene illumination at capture time.
type Lighting struct {
	Ambient mgl32.Vec3
	Lights  []light.Light
}

// Frame is everything needed to render one picture.
type Frame struct {
	View     camera.View
	Items    []DrawItem
	Lighting Lighting
}

// edgeEpsilon lets pixel centers lying on a shared edge land in at least one of the two triangles.
const edgeEpsilon = -1e-5

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	width, height int
	shaderDir     string

	pool  worker.DynamicWorkerPool
	bands int

	color        []float32
	position     []float32
	segmentation []int32
	depth        []float32
}

// Renderer defines the interface for a per-camera rasterizer.
//
// A Renderer owns the Color, Position and Segmentation targets of one camera, sized
// width x height with four channels each. Render fills them from a Frame; the target
// memory is reused from frame to frame, so a caller that hands a target to an
// asynchronous copy must not render again before that copy has completed.
//
// Rasterization is split in horizontal bands executed on a shared worker pool when one
// is configured; Render returns only once every band has finished.
type Renderer interface {
	// Width returns the target width in pixels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the target height in pixels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// ShaderDir returns the shader directory the renderer was created with.
	//
	// Returns:
	//   - string: the directory, empty for the built-in shading
	ShaderDir() string

	// Render clears every target and draws the frame into them.
	//
	// Parameters:
	//   - frame: the frame to draw
	//
	// Returns:
	//   - error: InvalidArgument if the frame's view does not match the target size, or an
	//     Internal error if a band panicked
	Render(frame Frame) error

	// Target returns a byte view of a target's memory. The view aliases the renderer's storage.
	//
	// Parameters:
	//   - t: the target
	//
	// Returns:
	//   - []byte: the target bytes, width*height*4*4 long
	Target(t Target) []byte

	// Clear zero-fills every target.
	Clear()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified options applied.
//
// Parameters:
//   - options: a variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: InvalidArgument if the size is not positive
func NewRenderer(options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:    &sync.Mutex{},
		bands: 1,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.width <= 0 || r.height <= 0 {
		return nil, status.Errorf(status.InvalidArgument, "renderer size must be positive, got %dx%d", r.width, r.height)
	}
	r.bands = max(1, min(r.bands, r.height))

	pixels := r.width * r.height
	r.color = make([]float32, pixels*TargetChannels)
	r.position = make([]float32, pixels*TargetChannels)
	r.segmentation = make([]int32, pixels*TargetChannels)
	r.depth = make([]float32, pixels)
	return r, nil
}

// NewWorkerPool creates the band pool shared by every renderer of a process.
//
// Parameters:
//   - workers: the maximum number of concurrent bands
//
// Returns:
//   - worker.DynamicWorkerPool: the pool
func NewWorkerPool(workers int) worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(workers, 256, 1*time.Second)
}

func (r *renderer) Width() int {
	return r.width
}

func (r *renderer) Height() int {
	return r.height
}

func (r *renderer) ShaderDir() string {
	return r.shaderDir
}

func (r *renderer) Target(t Target) []byte {
	switch t {
	case TargetColor:
		return common.SliceToBytes(r.color)
	case TargetPosition:
		return common.SliceToBytes(r.position)
	case TargetSegmentation:
		return common.SliceToBytes(r.segmentation)
	}
	return nil
}

func (r *renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()
}

func (r *renderer) clear() {
	clear(r.color)
	clear(r.position)
	clear(r.segmentation)
	for i := range r.depth {
		r.depth[i] = float32(math.Inf(1))
	}
}

func (r *renderer) Render(frame Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()

	if frame.View.Width != r.width || frame.View.Height != r.height {
		return status.Errorf(status.InvalidArgument, "view is %dx%d but targets are %dx%d",
			frame.View.Width, frame.View.Height, r.width, r.height)
	}

	tris, items := setupTriangles(frame)
	if len(tris) == 0 {
		return nil
	}

	bandHeight := (r.height + r.bands - 1) / r.bands
	if r.pool == nil || r.bands == 1 {
		return r.rasterBand(0, r.height, tris, items, frame)
	}

	var wg sync.WaitGroup
	errs := make([]error, r.bands)
	for b := 0; b < r.bands; b++ {
		y0 := b * bandHeight
		y1 := min(y0+bandHeight, r.height)
		if y0 >= y1 {
			break
		}
		wg.Add(1)
		band := b
		r.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				errs[band] = r.rasterBand(y0, y1, tris, items, frame)
				return nil, errs[band]
			},
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// rasterBand draws every triangle into rows [y0, y1). Bands never share pixels.
func (r *renderer) rasterBand(y0, y1 int, tris []screenTriangle, items []shadedItem, frame Frame) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = status.Errorf(status.Internal, "raster band [%d, %d) panicked: %v", y0, y1, rec)
		}
	}()
	for i := range tris {
		r.rasterTriangle(&tris[i], &items[tris[i].item], y0, y1, frame)
	}
	return nil
}

func (r *renderer) rasterTriangle(t *screenTriangle, item *shadedItem, y0, y1 int, frame Frame) {
	minY := max(t.minY, y0)
	maxY := min(t.maxY, y1-1)
	minX := max(t.minX, 0)
	maxX := min(t.maxX, r.width-1)
	if minX > maxX || minY > maxY {
		return
	}

	a, b, c := &t.v[0], &t.v[1], &t.v[2]
	far := frame.View.Intrinsics.Far
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(b.x, b.y, c.x, c.y, px, py) * t.invArea
			w1 := edge(c.x, c.y, a.x, a.y, px, py) * t.invArea
			w2 := edge(a.x, a.y, b.x, b.y, px, py) * t.invArea
			if w0 < edgeEpsilon || w1 < edgeEpsilon || w2 < edgeEpsilon {
				continue
			}

			invZ := w0*a.invZ + w1*b.invZ + w2*c.invZ
			if invZ <= 0 {
				continue
			}
			depth := 1 / invZ
			pix := y*r.width + x
			if depth > far || depth >= r.depth[pix] {
				continue
			}
			r.depth[pix] = depth

			cam := a.cam.Mul(w0).Add(b.cam.Mul(w1)).Add(c.cam.Mul(w2)).Mul(depth)
			world := a.world.Mul(w0).Add(b.world.Mul(w1)).Add(c.world.Mul(w2)).Mul(depth)
			normal := a.normal.Mul(w0).Add(b.normal.Mul(w1)).Add(c.normal.Mul(w2))
			r.shade(pix, cam, world, normal, item, frame)
		}
	}
}

func (r *renderer) shade(pix int, cam, world, normal mgl32.Vec3, item *shadedItem, frame Frame) {
	if normal.Len() > 0 {
		normal = normal.Normalize()
	}
	// Surfaces are lit from the side facing the camera.
	if normal.Dot(frame.View.Pose.Position.Sub(world)) < 0 {
		normal = normal.Mul(-1)
	}

	irradiance := frame.Lighting.Ambient
	for _, l := range frame.Lighting.Lights {
		irradiance = irradiance.Add(l.Irradiance(world, normal))
	}

	base := item.material.BaseColor
	o := pix * TargetChannels
	r.color[o+0] = base[0] * irradiance[0]
	r.color[o+1] = base[1] * irradiance[1]
	r.color[o+2] = base[2] * irradiance[2]
	r.color[o+3] = item.alpha

	r.position[o+0] = cam[0]
	r.position[o+1] = cam[1]
	r.position[o+2] = cam[2]
	r.position[o+3] = 1

	copy(r.segmentation[o:o+TargetChannels], item.segmentation[:])
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// String describes the renderer for logs.
func (r *renderer) String() string {
	return fmt.Sprintf("renderer(%dx%d, %d bands)", r.width, r.height, r.bands)
}
