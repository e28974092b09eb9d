package gpu

import (
	"time"
)

// softwareDevice is a Device whose queue runs on a CPU goroutine.
// It needs no graphics driver and is used for headless servers and tests.
type softwareDevice struct {
	label string
	q     *queue
}

var _ Device = &softwareDevice{}

func newSoftwareDevice(cfg deviceConfig) *softwareDevice {
	d := &softwareDevice{
		label: cfg.label,
		q:     newQueue(cfg.queueDepth, executeHostCopies),
	}
	d.q.start(nil)
	return d
}

func (d *softwareDevice) Name() string {
	return "software (" + d.label + ")"
}

func (d *softwareDevice) CreateTimeline(initial uint64) Timeline {
	return d.q.createTimeline(initial)
}

func (d *softwareDevice) CreateCommandBuffer() CommandBuffer {
	return newCommandBuffer()
}

func (d *softwareDevice) CreateBuffer(label string, size uint64, exportable bool) (Buffer, error) {
	b, err := newHostBuffer(label, size, exportable)
	if err != nil {
		return nil, err
	}
	d.q.track(b)
	return b, nil
}

func (d *softwareDevice) Submit(cb CommandBuffer, timeline Timeline, value uint64) error {
	return d.q.submit(cb, timeline, value)
}

func (d *softwareDevice) WaitTimelines(timelines []Timeline, values []uint64, timeout time.Duration) (WaitResult, error) {
	return waitTimelines(timelines, values, timeout)
}

func (d *softwareDevice) Release() {
	d.q.stop()
}
