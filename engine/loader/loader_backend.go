package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
)

// loaderBackend defines the generic interface for importing mesh files.
// Concrete implementations (wavefrontLoaderBackend, gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load performs a full import from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	Load(path string) (*model.ImportedModel, error)

	// LoadReader imports a model from a reader stream.
	//
	// Parameters:
	//   - name: the model name, carrying the format extension
	//   - r: the reader providing model data
	//   - baseDir: the directory relative references resolve against
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, baseDir string) (*model.ImportedModel, error)
}
