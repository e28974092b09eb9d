package gpu

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/status"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer pairs exportable host memory with a WebGPU device buffer that mirrors it.
type wgpuBuffer struct {
	*hostBuffer
	device *wgpu.Buffer
}

func (b *wgpuBuffer) Release() error {
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	return b.hostBuffer.Release()
}

// wgpuDevice is a Device backed by a WebGPU adapter. Every copy lands in the exported
// host memory and is written to the device buffer on the queue goroutine; the timeline
// is signalled once the WebGPU queue reports the work done.
type wgpuDevice struct {
	mu sync.Mutex

	label    string
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	q *queue
}

var _ Device = &wgpuDevice{}

func newWGPUDevice(cfg deviceConfig) (Device, error) {
	d := &wgpuDevice{
		label:    cfg.label,
		instance: wgpu.CreateInstance(nil),
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
	})
	if err != nil {
		d.instance.Release()
		return nil, status.Errorf(status.Internal, "failed to request adapter: %v", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: cfg.label + " Device",
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, status.Errorf(status.Internal, "failed to request device: %v", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.q = newQueue(cfg.queueDepth, d.execute)
	d.q.start(func() {
		runtime.LockOSThread()
	})
	return d, nil
}

func (d *wgpuDevice) Name() string {
	return "wgpu (" + d.label + ")"
}

func (d *wgpuDevice) CreateTimeline(initial uint64) Timeline {
	return d.q.createTimeline(initial)
}

func (d *wgpuDevice) CreateCommandBuffer() CommandBuffer {
	return newCommandBuffer()
}

func (d *wgpuDevice) CreateBuffer(label string, size uint64, exportable bool) (Buffer, error) {
	host, err := newHostBuffer(label, size, exportable)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             alignCopySize(size),
		Usage:            wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		MappedAtCreation: false,
	})
	if err != nil {
		host.Release()
		return nil, status.Errorf(status.Internal, "failed to create device buffer %q: %v", label, err)
	}

	b := &wgpuBuffer{hostBuffer: host, device: buf}
	d.q.track(b)
	return b, nil
}

func (d *wgpuDevice) Submit(cb CommandBuffer, timeline Timeline, value uint64) error {
	return d.q.submit(cb, timeline, value)
}

func (d *wgpuDevice) WaitTimelines(timelines []Timeline, values []uint64, timeout time.Duration) (WaitResult, error) {
	return waitTimelines(timelines, values, timeout)
}

func (d *wgpuDevice) Release() {
	d.q.stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// execute runs on the queue goroutine.
func (d *wgpuDevice) execute(commands []copyCommand) error {
	if err := executeHostCopies(commands); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range commands {
		b, ok := c.dst.(*wgpuBuffer)
		if !ok || b.device == nil {
			continue
		}
		if c.offset%4 != 0 || len(c.src)%4 != 0 {
			return fmt.Errorf("copy into %q at %d of %d bytes is not 4-byte aligned", b.Label(), c.offset, len(c.src))
		}
		d.queue.WriteBuffer(b.device, c.offset, c.src)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	d.device.Poll(true, nil)
	return nil
}

// alignCopySize rounds size up to the 4-byte granularity WebGPU requires for copies.
func alignCopySize(size uint64) uint64 {
	return (size + 3) &^ 3
}
