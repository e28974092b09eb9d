package scene

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithID sets the scene's identifier. Scenes without one get a fresh id.
//
// Parameters:
//   - id: the scene id
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithID(id common.ID) SceneBuilderOption {
	return func(s *scene) {
		s.id = id
	}
}

// WithIndex sets the scene's slot index.
//
// Parameters:
//   - index: the slot index, below MaxSceneIndex
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithIndex(index int) SceneBuilderOption {
	return func(s *scene) {
		s.index = index
	}
}

// WithDevice sets the device that creates the scene's timelines and command buffers
// and executes its submissions. Required.
//
// Parameters:
//   - device: the render device
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithDevice(device gpu.Device) SceneBuilderOption {
	return func(s *scene) {
		s.device = device
	}
}

// WithQueueDepth sets how many pictures may wait in the scene's queue before
// requests block. Defaults to DefaultQueueDepth.
//
// Parameters:
//   - depth: the queue capacity (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithQueueDepth(depth int) SceneBuilderOption {
	return func(s *scene) {
		if depth > 0 {
			s.queueDepth = depth
		}
	}
}

// WithFillInfoSource sets where cameras added to the scene copy their targets.
//
// Parameters:
//   - source: the destination resolver
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFillInfoSource(source FillInfoSource) SceneBuilderOption {
	return func(s *scene) {
		s.fillSource = source
	}
}

// WithObserver registers a callback run on the scene worker after every submitted picture.
//
// Parameters:
//   - observer: the callback
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithObserver(observer func(FrameResult)) SceneBuilderOption {
	return func(s *scene) {
		s.observer = observer
	}
}

// WithFatalHandler replaces the default fatal handler, which logs and exits.
//
// Parameters:
//   - fatal: the handler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithFatalHandler(fatal FatalFunc) SceneBuilderOption {
	return func(s *scene) {
		s.fatal = fatal
	}
}

// WithAmbientLight sets the initial ambient color. Defaults to DefaultAmbientLight.
//
// Parameters:
//   - color: the ambient RGB color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbientLight(color [3]float32) SceneBuilderOption {
	return func(s *scene) {
		s.ambient = color
	}
}
