// Package gpu abstracts the device the render server submits frame work to: command
// buffers, timeline completion signals and exportable output buffers.
package gpu

import (
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// DeviceBackendType identifies the device implementation.
type DeviceBackendType int

const (
	// BackendTypeSoftware executes submissions on a CPU queue goroutine.
	BackendTypeSoftware DeviceBackendType = iota
	// BackendTypeWGPU mirrors output buffers into WebGPU device buffers.
	BackendTypeWGPU
)

// ParseBackendType maps a backend name ("software", "wgpu") to its type.
//
// Parameters:
//   - name: case-insensitive backend name
//
// Returns:
//   - DeviceBackendType: the backend type
//   - error: an InvalidArgument error for unknown names
func ParseBackendType(name string) (DeviceBackendType, error) {
	switch strings.ToLower(name) {
	case "", "software", "cpu":
		return BackendTypeSoftware, nil
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	}
	return BackendTypeSoftware, status.Errorf(status.InvalidArgument, "unknown device backend %q", name)
}

// Device is the render device: it owns one submission queue, the timelines that
// queue signals, and the buffers it copies into.
type Device interface {
	// Name returns a human readable description of the device.
	//
	// Returns:
	//   - string: the device name
	Name() string

	// CreateTimeline creates a completion timeline owned by this device.
	//
	// Parameters:
	//   - initial: the starting counter value
	//
	// Returns:
	//   - Timeline: the new timeline
	CreateTimeline(initial uint64) Timeline

	// CreateCommandBuffer creates a reusable command buffer.
	//
	// Returns:
	//   - CommandBuffer: the new command buffer
	CreateCommandBuffer() CommandBuffer

	// CreateBuffer allocates a device buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes (must be positive)
	//   - exportable: whether the buffer must be mappable by a parallel compute consumer
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: error if the allocation or export setup fails
	CreateBuffer(label string, size uint64, exportable bool) (Buffer, error)

	// Submit enqueues the commands recorded in cb and signals timeline to value once
	// they have executed. Submit does not block on execution; the command buffer may be
	// reset immediately after Submit returns.
	//
	// Parameters:
	//   - cb: the recorded command buffer
	//   - timeline: the timeline to signal, or nil
	//   - value: the value to signal
	//
	// Returns:
	//   - error: an Internal error if the device has been released
	Submit(cb CommandBuffer, timeline Timeline, value uint64) error

	// WaitTimelines waits until every timeline reaches its paired value.
	//
	// Parameters:
	//   - timelines: the timelines to wait on
	//   - values: the target value per timeline
	//   - timeout: the maximum total wait (Infinite for no bound)
	//
	// Returns:
	//   - WaitResult: WaitSuccess or WaitTimeout
	//   - error: any other wait failure
	WaitTimelines(timelines []Timeline, values []uint64, timeout time.Duration) (WaitResult, error)

	// Release drains the queue, fails every timeline still waited on, and frees the device.
	Release()
}

// NewDevice creates a Device for the given backend.
//
// Parameters:
//   - backendType: the backend implementation
//   - options: functional options for device configuration
//
// Returns:
//   - Device: the new device
//   - error: error if the backend cannot be initialized
func NewDevice(backendType DeviceBackendType, options ...DeviceBuilderOption) (Device, error) {
	cfg := deviceConfig{
		label:      "oxy-render",
		queueDepth: 256,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	switch backendType {
	case BackendTypeWGPU:
		return newWGPUDevice(cfg)
	default:
		return newSoftwareDevice(cfg), nil
	}
}
