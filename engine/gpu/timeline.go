package gpu

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// Infinite is the timeout that never expires.
const Infinite time.Duration = -1

// WaitResult is the outcome of a successful multi-timeline wait call.
type WaitResult int

const (
	// WaitSuccess means every timeline reached its target value.
	WaitSuccess WaitResult = iota
	// WaitTimeout means the timeout expired first.
	WaitTimeout
)

// timeline is the implementation of the Timeline interface.
type timeline struct {
	mu      sync.Mutex
	value   uint64
	err     error
	changed chan struct{}
}

// Timeline is a monotonically increasing completion counter, signalled by the device
// when submitted work finishes and waitable for any target value.
type Timeline interface {
	// Value returns the last signalled value.
	//
	// Returns:
	//   - uint64: the current counter value
	Value() uint64

	// Signal advances the counter to v and wakes waiters. Signalling the current value is a no-op.
	//
	// Parameters:
	//   - v: the new counter value
	//
	// Returns:
	//   - error: an Internal error if v is lower than the current value or the timeline has failed
	Signal(v uint64) error

	// Wait blocks until the counter reaches v, the timeout expires, or the timeline fails.
	// A negative timeout waits without bound; a zero timeout only polls.
	//
	// Parameters:
	//   - v: the target value
	//   - timeout: the maximum wait
	//
	// Returns:
	//   - bool: true if the value was reached, false on timeout
	//   - error: the failure that ended the wait, if any
	Wait(v uint64, timeout time.Duration) (bool, error)
}

var _ Timeline = &timeline{}

// NewTimeline creates a host-side timeline starting at initial.
// Devices create their timelines through CreateTimeline so they can fail them on release.
//
// Parameters:
//   - initial: the starting counter value
//
// Returns:
//   - Timeline: the new timeline
func NewTimeline(initial uint64) Timeline {
	return newTimeline(initial)
}

func newTimeline(initial uint64) *timeline {
	return &timeline{
		value:   initial,
		changed: make(chan struct{}),
	}
}

func (t *timeline) Value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

func (t *timeline) Signal(v uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	if v < t.value {
		return status.Errorf(status.Internal, "timeline signalled backwards: %d after %d", v, t.value)
	}
	if v == t.value {
		return nil
	}
	t.value = v
	close(t.changed)
	t.changed = make(chan struct{})
	return nil
}

// fail marks the timeline broken and wakes every waiter with err.
func (t *timeline) fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	t.err = err
	close(t.changed)
	t.changed = make(chan struct{})
}

func (t *timeline) Wait(v uint64, timeout time.Duration) (bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		t.mu.Lock()
		value, err, changed := t.value, t.err, t.changed
		t.mu.Unlock()

		if value >= v {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if timeout == 0 {
			return false, nil
		}

		select {
		case <-changed:
		case <-deadline:
			return false, nil
		}
	}
}

// waitTimelines waits for every timeline to reach its paired value under one shared deadline.
func waitTimelines(timelines []Timeline, values []uint64, timeout time.Duration) (WaitResult, error) {
	if len(timelines) != len(values) {
		return WaitTimeout, status.Errorf(status.InvalidArgument, "%d timelines but %d values", len(timelines), len(values))
	}

	start := time.Now()
	for i, t := range timelines {
		remaining := timeout
		if timeout > 0 {
			remaining = timeout - time.Since(start)
			if remaining <= 0 {
				remaining = 0
			}
		}
		ok, err := t.Wait(values[i], remaining)
		if err != nil {
			return WaitTimeout, err
		}
		if !ok {
			return WaitTimeout, nil
		}
	}
	return WaitSuccess, nil
}
