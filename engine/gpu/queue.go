package gpu

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

var errDeviceLost = status.Errorf(status.Internal, "device lost")

// submission is one Submit call waiting on the queue.
type submission struct {
	commands []copyCommand
	timeline Timeline
	value    uint64
}

// queue executes submissions in order on a dedicated goroutine and signals their timelines.
type queue struct {
	logger log.Logger

	submissions chan submission
	execute     func(commands []copyCommand) error

	mu        sync.Mutex
	timelines []*timeline
	buffers   []Buffer

	quitChannel chan struct{}
	quitOnce    sync.Once
	wg          sync.WaitGroup
}

func newQueue(depth int, execute func(commands []copyCommand) error) *queue {
	return &queue{
		logger:      log.New("gpu"),
		submissions: make(chan submission, depth),
		execute:     execute,
		quitChannel: make(chan struct{}),
	}
}

// start launches the queue goroutine. setup runs on that goroutine before the first submission.
func (q *queue) start(setup func()) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if setup != nil {
			setup()
		}
		for {
			select {
			case sub := <-q.submissions:
				q.run(sub)
			case <-q.quitChannel:
				q.drain()
				return
			}
		}
	}()
}

// drain runs the submissions that were accepted before the queue was stopped.
func (q *queue) drain() {
	for {
		select {
		case sub := <-q.submissions:
			q.run(sub)
		default:
			return
		}
	}
}

func (q *queue) run(sub submission) {
	if err := q.execute(sub.commands); err != nil {
		q.logger.Errorf("submission for value %d failed: %v", sub.value, err)
	}
	if sub.timeline == nil {
		return
	}
	if err := sub.timeline.Signal(sub.value); err != nil {
		q.logger.Criticalf("failed to signal timeline to %d: %v", sub.value, err)
	}
}

func (q *queue) createTimeline(initial uint64) Timeline {
	t := newTimeline(initial)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timelines = append(q.timelines, t)
	return t
}

func (q *queue) track(b Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buffers = append(q.buffers, b)
}

func (q *queue) submit(cb CommandBuffer, t Timeline, value uint64) error {
	var commands []copyCommand
	if cb != nil {
		impl, ok := cb.(*commandBuffer)
		if !ok {
			return status.Errorf(status.InvalidArgument, "command buffer was not created by this device")
		}
		commands = impl.snapshot()
	}

	select {
	case <-q.quitChannel:
		return errDeviceLost
	default:
	}

	select {
	case q.submissions <- submission{commands: commands, timeline: t, value: value}:
		return nil
	case <-q.quitChannel:
		return errDeviceLost
	}
}

// stop drains accepted work, fails every timeline and releases tracked buffers.
func (q *queue) stop() {
	q.quitOnce.Do(func() {
		close(q.quitChannel)
	})
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.timelines {
		t.fail(errDeviceLost)
	}
	var errs []error
	for _, b := range q.buffers {
		errs = append(errs, b.Release())
	}
	if err := errors.Join(errs...); err != nil {
		q.logger.Warningf("failed to release buffers: %v", err)
	}
	q.timelines = nil
	q.buffers = nil
}

// executeHostCopies performs the copies into the host-visible memory of each destination.
func executeHostCopies(commands []copyCommand) error {
	for _, c := range commands {
		copy(c.dst.Bytes()[c.offset:], c.src)
	}
	return nil
}
