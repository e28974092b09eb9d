package profiler

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

// Stats is one reporting window.
type Stats struct {
	Frames         uint64
	Failed         uint64
	FPS            float64
	HeapMB         float64
	AllocRateMB    float64
	GCCount        uint32
	LastPauseUs    uint64
	MaxPauseUs     uint64
	SysMB          float64
	Elapsed        time.Duration
	SceneFrameRate map[uint64]float64
}

// Profiler counts finished pictures across all scenes and logs frame rate and memory
// statistics at a fixed interval. Observe is safe to call from any scene worker.
type Profiler struct {
	logger   log.Logger
	interval time.Duration

	frames atomic.Uint64
	failed atomic.Uint64

	sceneMu     sync.Mutex
	sceneFrames map[uint64]uint64

	mu             sync.Mutex
	lastTime       time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stop chan struct{}
	done chan struct{}
}

// NewProfiler creates a Profiler. The interval defaults to 1 second.
//
// Parameters:
//   - interval: the reporting period, zero for the default
//
// Returns:
//   - *Profiler: the profiler
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		logger:      log.New("profiler"),
		interval:    interval,
		lastTime:    time.Now(),
		sceneFrames: make(map[uint64]uint64),
	}
}

// Observe records one finished picture. Pass it as the scene observer.
//
// Parameters:
//   - res: the picture result
func (p *Profiler) Observe(res scene.FrameResult) {
	p.frames.Add(1)
	if res.Err != nil {
		p.failed.Add(1)
	}
	p.sceneMu.Lock()
	p.sceneFrames[res.Scene]++
	p.sceneMu.Unlock()
}

// Start logs a report every interval until Stop is called.
func (p *Profiler) Start() {
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.lastTime = time.Now()
	stop, done := p.stop, p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Report(time.Now())
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends the reporting goroutine.
func (p *Profiler) Stop() {
	p.mu.Lock()
	stop, done := p.stop, p.done
	p.stop, p.done = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Report closes the current window, logs it and resets the counters.
//
// Parameters:
//   - now: the end of the window
//
// Returns:
//   - Stats: the window's statistics
func (p *Profiler) Report(now time.Time) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := now.Sub(p.lastTime)
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		seconds = 1e-9
	}
	st := Stats{
		Frames:         p.frames.Swap(0),
		Failed:         p.failed.Swap(0),
		Elapsed:        elapsed,
		SceneFrameRate: make(map[uint64]float64),
	}
	st.FPS = float64(st.Frames) / seconds

	p.sceneMu.Lock()
	for id, n := range p.sceneFrames {
		st.SceneFrameRate[id] = float64(n) / seconds
	}
	p.sceneFrames = make(map[uint64]uint64)
	p.sceneMu.Unlock()

	runtime.ReadMemStats(&p.memStats)
	st.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	st.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	st.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / seconds

	// PauseNs is a circular buffer of the last 256 pauses.
	st.GCCount = p.memStats.NumGC
	if st.GCCount > 0 {
		st.LastPauseUs = p.memStats.PauseNs[(st.GCCount-1)%256] / 1000
		start := p.lastGCCount
		if st.GCCount-start > 256 {
			start = st.GCCount - 256
		}
		for i := start; i < st.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > st.MaxPauseUs {
				st.MaxPauseUs = pause
			}
		}
	}

	p.logger.Infof("frames/s: %.2f (%d failed, %d scenes) | heap: %.2f MB | alloc rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | sys: %.2f MB",
		st.FPS, st.Failed, len(st.SceneFrameRate), st.HeapMB, st.AllocRateMB, st.GCCount, st.LastPauseUs, st.MaxPauseUs, st.SysMB)

	p.lastTime = now
	p.lastGCCount = st.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return st
}
