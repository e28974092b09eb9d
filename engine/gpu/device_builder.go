package gpu

// deviceConfig collects the options shared by every backend.
type deviceConfig struct {
	label                string
	queueDepth           int
	forceFallbackAdapter bool
}

// DeviceBuilderOption is a functional option for configuring a Device.
type DeviceBuilderOption func(*deviceConfig)

// WithLabel sets the device label.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLabel(label string) DeviceBuilderOption {
	return func(c *deviceConfig) {
		if label != "" {
			c.label = label
		}
	}
}

// WithQueueDepth sets how many submissions may be pending before Submit blocks.
// Values <= 0 keep the default.
//
// Parameters:
//   - depth: the pending submission capacity
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithQueueDepth(depth int) DeviceBuilderOption {
	return func(c *deviceConfig) {
		if depth > 0 {
			c.queueDepth = depth
		}
	}
}

// WithForceFallbackAdapter requests the software adapter from the WebGPU backend.
// Ignored by the software backend.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(c *deviceConfig) {
		c.forceFallbackAdapter = force
	}
}
