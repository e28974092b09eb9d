package service

import (
	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/loader"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// RenderServiceBuilderOption is a functional option for configuring a RenderService.
type RenderServiceBuilderOption func(s *renderService)

// WithDevice sets the device every scene renders on. Required.
//
// Parameters:
//   - device: the render device
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithDevice(device gpu.Device) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.device = device
	}
}

// WithLoader sets the mesh loader. Defaults to a fresh caching loader.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithLoader(l loader.Loader) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.loader = l
	}
}

// WithShaderDir sets the shader directory used by cameras that do not name one.
//
// Parameters:
//   - dir: the directory path
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithShaderDir(dir string) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.shaderDir = dir
	}
}

// WithQueueDepth sets the picture queue depth of every new scene.
//
// Parameters:
//   - depth: the queue capacity
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithQueueDepth(depth int) RenderServiceBuilderOption {
	return func(s *renderService) {
		if depth > 0 {
			s.queueDepth = depth
		}
	}
}

// WithWorkerPool shares a rasterization pool between every camera renderer.
//
// Parameters:
//   - pool: the worker pool, nil renders inline
//   - bands: the number of row bands per frame
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithWorkerPool(pool worker.DynamicWorkerPool, bands int) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.pool = pool
		s.bands = bands
	}
}

// WithFillInfoSource sets where new cameras look up their output buffer regions.
//
// Parameters:
//   - source: usually the engine's buffer allocator
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithFillInfoSource(source scene.FillInfoSource) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.fillSource = source
	}
}

// WithObserver receives the result of every finished picture of every scene.
//
// Parameters:
//   - observer: called on scene workers, must not block
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithObserver(observer func(scene.FrameResult)) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.observer = observer
	}
}

// WithFatalHandler replaces the handler scenes call on unrecoverable worker failures.
//
// Parameters:
//   - fatal: the handler
//
// Returns:
//   - RenderServiceBuilderOption: option function to apply
func WithFatalHandler(fatal scene.FatalFunc) RenderServiceBuilderOption {
	return func(s *renderService) {
		s.fatal = fatal
	}
}
