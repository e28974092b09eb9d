package loader

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/log"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu     sync.RWMutex
	logger log.Logger

	modelCache map[string]*model.ImportedModel

	backends map[string]loaderBackend
}

// Loader defines the public-facing interface for loading and caching mesh files.
// It abstracts the file format (Wavefront OBJ, glTF, GLB) behind a backend selected by extension
// and manages a cache of previously imported files. Cached models are immutable and shared;
// callers build per-body models with model.FromImported.
type Loader interface {
	// Load imports a mesh file and caches the result.
	// If the file is already cached (by cleaned absolute path), the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the mesh file
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: InvalidArgument for unsupported or malformed files, NotFound for missing files
	Load(path string) (*model.ImportedModel, error)

	// LoadReader imports a mesh from a stream and caches it under name.
	// The backend is selected from the extension of name; relative references
	// (material libraries, external buffers) resolve against baseDir.
	//
	// Parameters:
	//   - name: the cache key, carrying the format extension
	//   - r: the reader providing the file data
	//   - baseDir: the directory for relative references
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, baseDir string) (*model.ImportedModel, error)

	// Get retrieves a cached model by key. Returns nil if not found.
	//
	// Parameters:
	//   - key: the cache key to look up
	//
	// Returns:
	//   - *model.ImportedModel: the cached model or nil
	Get(key string) *model.ImportedModel

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]*model.ImportedModel: all cached models keyed by cache key
	Models() map[string]*model.ImportedModel
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with every format backend registered and the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader
func NewLoader(options ...LoaderBuilderOption) Loader {
	gltf := newGLTFLoaderBackend()
	l := &loader{
		logger:     log.New("loader"),
		modelCache: make(map[string]*model.ImportedModel),
		backends: map[string]loaderBackend{
			".obj":  newWavefrontLoaderBackend(),
			".gltf": gltf,
			".glb":  gltf,
		},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*model.ImportedModel, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, status.Errorf(status.InvalidArgument, "invalid path %q: %v", path, err)
	}
	if cached := l.Get(key); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(key)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	imported, err := backend.Load(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, status.Errorf(status.NotFound, "mesh file %q not found", path)
		}
		return nil, status.Errorf(status.InvalidArgument, "failed to load %s: %v", path, err)
	}
	l.logger.Infof("loaded %q (%d meshes, %d materials) in %d ms",
		path, len(imported.Meshes), len(imported.Materials), time.Since(start).Milliseconds())
	return l.store(key, imported), nil
}

func (l *loader) LoadReader(name string, r io.Reader, baseDir string) (*model.ImportedModel, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	backend, err := l.resolveBackend(name)
	if err != nil {
		return nil, err
	}
	imported, err := backend.LoadReader(name, r, baseDir)
	if err != nil {
		return nil, status.Errorf(status.InvalidArgument, "failed to load from reader %q: %v", name, err)
	}
	return l.store(name, imported), nil
}

// store caches m under key unless a concurrent load got there first, returning the cached value.
func (l *loader) store(key string, m *model.ImportedModel) *model.ImportedModel {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.modelCache[key]; ok {
		return existing
	}
	l.modelCache[key] = m
	return m
}

func (l *loader) Get(key string) *model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[key]
}

func (l *loader) Models() map[string]*model.ImportedModel {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*model.ImportedModel, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

// resolveBackend selects the loader backend from the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if b, ok := l.backends[ext]; ok {
		return b, nil
	}
	return nil, status.Errorf(status.InvalidArgument, "unsupported mesh format: %q", ext)
}
