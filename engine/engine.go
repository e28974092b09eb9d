package engine

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/engine/buffer"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/gpu"
	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/profiler"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/Carmen-Shannon/oxy-render/engine/service"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/Carmen-Shannon/oxy-render/engine/transport"
)

// engine implements the Engine interface.
// Owns the device, the render service and the listening endpoint.
type engine struct {
	logger log.Logger
	cfg    config.Config

	device     gpu.Device
	ownsDevice bool
	pool       worker.DynamicWorkerPool
	allocator  buffer.Allocator
	service    service.RenderService
	server     transport.Server
	fatal      scene.FatalFunc
	observer   func(scene.FrameResult)
	profiler   *profiler.Profiler
	profiling  bool

	mu      sync.Mutex
	running bool
	closed  bool
}

// Engine is the render server: it serves the render service to remote callers and
// owns the shared output buffers every camera copies its pictures into.
type Engine interface {
	// Start listens for remote callers.
	//
	// Parameters:
	//   - address: host:port to listen on, "" for the configured address
	//
	// Returns:
	//   - error: Internal if the engine is already running or the address cannot be bound
	Start(address string) error

	// Addr returns the bound address, or "" when not running.
	//
	// Returns:
	//   - string: the listening address
	Addr() string

	// Stop closes the endpoint and every connection. Scenes stay alive.
	//
	// Returns:
	//   - error: error if the endpoint did not shut down cleanly
	Stop() error

	// WaitAll waits until every camera of every scene finished its last requested picture.
	//
	// Parameters:
	//   - timeout: the maximum wait, gpu.Infinite for no bound
	//
	// Returns:
	//   - bool: true when every picture finished, false on timeout
	//   - error: error if the device wait failed
	WaitAll(timeout time.Duration) (bool, error)

	// WaitScenes waits for the cameras of the scenes at the given slot indices.
	//
	// Parameters:
	//   - indices: scene slot indices
	//   - timeout: the maximum wait, gpu.Infinite for no bound
	//
	// Returns:
	//   - bool: true when every picture finished, false on timeout
	//   - error: NotFound if a slot is empty, or the device wait error
	WaitScenes(indices []int, timeout time.Duration) (bool, error)

	// AllocateBuffer allocates and exports a standalone device buffer.
	//
	// Parameters:
	//   - typ: element type string such as "<f4"
	//   - shape: the logical shape
	//
	// Returns:
	//   - *buffer.OutputBuffer: the buffer
	//   - error: InvalidArgument for bad types or shapes, Internal on device failures
	AllocateBuffer(typ string, shape []int) (*buffer.OutputBuffer, error)

	// AutoAllocateBuffers lays out one buffer per target for every current scene and
	// camera, then points every camera at its region. Can run once.
	//
	// Parameters:
	//   - targets: target names, e.g. "Color", "Position", "Segmentation"
	//
	// Returns:
	//   - []*buffer.OutputBuffer: one buffer per target in request order
	//   - error: ResourceExhausted on a second call, InvalidArgument for bad targets or layouts
	AutoAllocateBuffers(targets []string) ([]*buffer.OutputBuffer, error)

	// Layout returns the layout computed by AutoAllocateBuffers.
	//
	// Returns:
	//   - buffer.Layout: the layout
	//   - bool: false before AutoAllocateBuffers succeeded
	Layout() (buffer.Layout, bool)

	// Summary reports the scene and material counts.
	//
	// Returns:
	//   - string: "Scene     N\nMaterials M\n"
	Summary() string

	// Service returns the render service remote calls are dispatched to.
	//
	// Returns:
	//   - service.RenderService: the service
	Service() service.RenderService

	// Device returns the device every scene renders on.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// Close stops the engine, removes every scene and releases the device if the engine created it.
	Close()
}

// NewEngine creates a new Engine from the provided options.
// Without WithConfig the defaults of config.Default are used; without WithDevice a
// device is created from the configured backend.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the engine, not yet listening
//   - error: InvalidArgument for a bad configuration, Internal if the device cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		logger: log.New("engine"),
		cfg:    config.Default(),
	}
	for _, opt := range options {
		opt(e)
	}

	e.cfg.ApplyDefaults()
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if level, ok := log.ParseLevel(e.cfg.Log.Level); ok {
		log.SetLevel(level)
	}
	if e.fatal == nil {
		e.fatal = e.logger.Fatalf
	}

	if e.device == nil {
		backend, err := gpu.ParseBackendType(e.cfg.Device.Backend)
		if err != nil {
			return nil, err
		}
		d, err := gpu.NewDevice(backend,
			gpu.WithLabel(e.cfg.Device.Label),
			gpu.WithForceFallbackAdapter(e.cfg.Device.ForceFallbackAdapter),
		)
		if err != nil {
			return nil, status.Errorf(status.Internal, "create %s device: %v", e.cfg.Device.Backend, err)
		}
		e.device = d
		e.ownsDevice = true
	}

	e.profiling = e.profiling || e.cfg.Profiler.Enabled
	if e.profiling {
		e.profiler = profiler.NewProfiler(e.cfg.Profiler.Interval)
	}

	e.pool = renderer.NewWorkerPool(e.cfg.Render.Workers)
	e.allocator = buffer.NewAllocator(e.device)

	svc, err := service.NewRenderService(
		service.WithDevice(e.device),
		service.WithShaderDir(e.cfg.ShaderDir),
		service.WithQueueDepth(e.cfg.Render.QueueDepth),
		service.WithWorkerPool(e.pool, e.cfg.Render.Workers),
		service.WithFillInfoSource(e.allocator),
		service.WithObserver(e.observe),
		service.WithFatalHandler(e.fatal),
	)
	if err != nil {
		e.release()
		return nil, err
	}
	e.service = svc
	e.server = transport.NewServer(svc)

	e.logger.Infof("engine created on %s device %q (%d render workers)", e.cfg.Device.Backend, e.device.Name(), e.cfg.Render.Workers)
	return e, nil
}

// observe fans finished pictures out to the profiler and the configured observer.
func (e *engine) observe(res scene.FrameResult) {
	if res.Err != nil {
		e.logger.Warningf("scene %d camera %d frame %d rendered empty: %v", res.Scene, res.Camera, res.Frame, res.Err)
	}
	if e.profiler != nil {
		e.profiler.Observe(res)
	}
	if e.observer != nil {
		e.observer(res)
	}
}

func (e *engine) Start(address string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return status.Errorf(status.Internal, "engine closed")
	}
	if e.running {
		return status.Errorf(status.Internal, "engine already listening on %s", e.server.Addr())
	}
	if address == "" {
		address = e.cfg.Address
	}
	if err := e.server.Start(address); err != nil {
		return err
	}
	if e.profiler != nil {
		e.profiler.Start()
	}
	e.running = true
	e.logger.Noticef("render server listening on %s", e.server.Addr())
	return nil
}

func (e *engine) Addr() string {
	return e.server.Addr()
}

func (e *engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.running = false
	if e.profiler != nil {
		e.profiler.Stop()
	}
	err := e.server.Stop()
	e.logger.Notice("render server stopped")
	return err
}

func (e *engine) WaitAll(timeout time.Duration) (bool, error) {
	var timelines []gpu.Timeline
	var values []uint64
	for _, s := range e.service.Scenes() {
		ts, vs := s.Pending()
		timelines = append(timelines, ts...)
		values = append(values, vs...)
	}
	return e.wait(timelines, values, timeout)
}

func (e *engine) WaitScenes(indices []int, timeout time.Duration) (bool, error) {
	var timelines []gpu.Timeline
	var values []uint64
	for _, index := range indices {
		s, ok := e.service.SceneAt(index)
		if !ok {
			return false, status.Errorf(status.NotFound, "no scene at index %d", index)
		}
		ts, vs := s.Pending()
		timelines = append(timelines, ts...)
		values = append(values, vs...)
	}
	return e.wait(timelines, values, timeout)
}

func (e *engine) wait(timelines []gpu.Timeline, values []uint64, timeout time.Duration) (bool, error) {
	res, err := e.device.WaitTimelines(timelines, values, timeout)
	if err != nil {
		return false, err
	}
	return res == gpu.WaitSuccess, nil
}

func (e *engine) AllocateBuffer(typ string, shape []int) (*buffer.OutputBuffer, error) {
	return e.allocator.AllocateBuffer(typ, shape)
}

func (e *engine) AutoAllocateBuffers(targets []string) ([]*buffer.OutputBuffer, error) {
	scenes := e.service.Scenes()
	stats := make([]buffer.SceneStats, 0, len(scenes))
	for _, s := range scenes {
		stats = append(stats, s.Stats())
	}
	buffers, err := e.allocator.AutoAllocate(stats, targets)
	if err != nil {
		return nil, err
	}
	for _, s := range scenes {
		s.RefreshFillInfo(e.allocator)
	}
	e.logger.Debugf("fill info refreshed for %d scenes", len(scenes))
	return buffers, nil
}

func (e *engine) Layout() (buffer.Layout, bool) {
	return e.allocator.Layout()
}

func (e *engine) Summary() string {
	return e.service.Summary()
}

func (e *engine) Service() service.RenderService {
	return e.service
}

func (e *engine) Device() gpu.Device {
	return e.device
}

func (e *engine) Close() {
	if err := e.Stop(); err != nil {
		e.logger.Warningf("stop: %v", err)
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.service.Close()
	for _, b := range e.allocator.Buffers() {
		b.Buffer.Release()
	}
	e.release()
}

// release frees what NewEngine created.
func (e *engine) release() {
	if e.pool != nil {
		e.pool.Stop()
	}
	if e.ownsDevice {
		e.device.Release()
	}
}
