package renderer

import "github.com/Carmen-Shannon/automation/tools/worker"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSize sets the target size in pixels.
//
// Parameters:
//   - width: the target width
//   - height: the target height
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(width, height int) RendererBuilderOption {
	return func(r *renderer) {
		r.width = width
		r.height = height
	}
}

// WithShaderDir records the shader directory the renderer was requested with.
//
// Parameters:
//   - dir: the shader directory
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader directory option to a renderer
func WithShaderDir(dir string) RendererBuilderOption {
	return func(r *renderer) {
		r.shaderDir = dir
	}
}

// WithWorkerPool rasterizes frames in bands on a shared pool.
//
// Parameters:
//   - pool: the worker pool, typically from NewWorkerPool
//   - bands: the number of horizontal bands per frame
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker pool option to a renderer
func WithWorkerPool(pool worker.DynamicWorkerPool, bands int) RendererBuilderOption {
	return func(r *renderer) {
		r.pool = pool
		r.bands = bands
	}
}
