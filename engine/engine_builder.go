package engine

import (
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the server configuration. Zero fields are filled with defaults.
//
// Parameters:
//   - cfg: the configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg config.Config) EngineBuilderOption {
	return func(e *engine) {
		e.cfg = cfg
	}
}

// WithDevice sets a pre-created device rather than letting the engine create one from
// the configured backend. The engine does not release a device it did not create.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d gpu.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithFatalHandler replaces the handler called when a scene worker hits an
// unrecoverable synchronization failure. The default logs and exits.
//
// Parameters:
//   - fatal: the handler
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFatalHandler(fatal scene.FatalFunc) EngineBuilderOption {
	return func(e *engine) {
		e.fatal = fatal
	}
}

// WithProfiling enables or disables periodic frame statistics output.
// Enabling it here overrides a disabled profiler in the configuration.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profiling = enabled
	}
}

// WithObserver receives every finished picture of every scene.
//
// Parameters:
//   - observer: called on scene workers, must not block
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithObserver(observer func(scene.FrameResult)) EngineBuilderOption {
	return func(e *engine) {
		e.observer = observer
	}
}
