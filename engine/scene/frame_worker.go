package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// frameWorker runs a scene's picture tasks one at a time in submission order.
type frameWorker struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	done   chan struct{}
}

func newFrameWorker(depth int) *frameWorker {
	w := &frameWorker{
		tasks: make(chan func(), max(depth, 1)),
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *frameWorker) run() {
	defer close(w.done)
	for task := range w.tasks {
		task()
	}
}

// submit enqueues task, blocking while the queue is full.
func (w *frameWorker) submit(task func()) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return status.Errorf(status.Internal, "scene worker is stopped")
	}
	w.tasks <- task
	return nil
}

// close stops accepting tasks and returns once every queued task has run.
func (w *frameWorker) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()
	<-w.done
}
