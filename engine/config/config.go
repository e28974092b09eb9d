// Package config loads the render server configuration from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/status"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Device backend names.
const (
	BackendSoftware = "software"
	BackendWGPU     = "wgpu"
)

const (
	defaultAddress          = "127.0.0.1:15003"
	defaultQueueDepth       = 1024
	defaultProfilerInterval = time.Second
	defaultLogLevel         = "notice"
)

// Device selects and configures the GPU device backend.
type Device struct {
	// Backend is "software" (CPU queue, default) or "wgpu".
	Backend string `yaml:"backend" toml:"backend"`
	// Label is the device label passed to the backend.
	Label string `yaml:"label" toml:"label"`
	// ForceFallbackAdapter requests the software adapter from wgpu.
	ForceFallbackAdapter bool `yaml:"force_fallback_adapter" toml:"force_fallback_adapter"`
}

// Render configures per-frame work scheduling.
type Render struct {
	// Workers is the size of the rasterization worker pool.
	Workers int `yaml:"workers" toml:"workers"`
	// QueueDepth is the capacity of each scene's picture queue.
	QueueDepth int `yaml:"queue_depth" toml:"queue_depth"`
}

// Log configures logging verbosity.
type Log struct {
	Level string `yaml:"level" toml:"level"`
}

// Profiler configures the periodic frame statistics output.
type Profiler struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

// Config is the complete server configuration.
type Config struct {
	// Address is the host:port the server listens on.
	Address string `yaml:"address" toml:"address"`
	// ShaderDir is the fallback shader directory for cameras that do not name one.
	ShaderDir string `yaml:"shader_dir" toml:"shader_dir"`
	// Targets are the render targets allocated by the serve command.
	Targets []string `yaml:"targets" toml:"targets"`

	Device   Device   `yaml:"device" toml:"device"`
	Render   Render   `yaml:"render" toml:"render"`
	Log      Log      `yaml:"log" toml:"log"`
	Profiler Profiler `yaml:"profiler" toml:"profiler"`
}

// Default returns a configuration with every field set to its default.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	c.Address = common.Coalesce(c.Address, defaultAddress)
	c.Device.Backend = strings.ToLower(common.Coalesce(c.Device.Backend, BackendSoftware))
	c.Device.Label = common.Coalesce(c.Device.Label, "oxy-render")
	c.Render.Workers = common.Coalesce(c.Render.Workers, max(runtime.NumCPU()-1, 1))
	c.Render.QueueDepth = common.Coalesce(c.Render.QueueDepth, defaultQueueDepth)
	c.Log.Level = common.Coalesce(c.Log.Level, defaultLogLevel)
	c.Profiler.Interval = common.Coalesce(c.Profiler.Interval, defaultProfilerInterval)
}

// Validate checks the configuration for values no component can accept.
//
// Returns:
//   - error: an InvalidArgument error describing the first bad field
func (c *Config) Validate() error {
	switch c.Device.Backend {
	case BackendSoftware, BackendWGPU:
	default:
		return status.Errorf(status.InvalidArgument, "unknown device backend %q", c.Device.Backend)
	}
	if c.Render.Workers < 0 {
		return status.Errorf(status.InvalidArgument, "render.workers must be positive, got %d", c.Render.Workers)
	}
	if c.Render.QueueDepth < 0 {
		return status.Errorf(status.InvalidArgument, "render.queue_depth must be positive, got %d", c.Render.QueueDepth)
	}
	if c.ShaderDir != "" {
		if info, err := os.Stat(c.ShaderDir); err != nil || !info.IsDir() {
			return status.Errorf(status.InvalidArgument, "shader directory %q does not exist", c.ShaderDir)
		}
	}
	return nil
}

// Load reads a configuration file. The format is chosen by extension:
// .yaml/.yml for YAML and .toml for TOML. Defaults are applied to missing fields.
//
// Parameters:
//   - path: the configuration file path
//
// Returns:
//   - Config: the loaded configuration
//   - error: error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes configuration data in the format named by ext (".yaml", ".yml" or ".toml").
//
// Parameters:
//   - data: the encoded configuration
//   - ext: the format extension, leading dot optional
//
// Returns:
//   - Config: the decoded configuration with defaults applied
//   - error: error if decoding or validation fails
func Parse(data []byte, ext string) (Config, error) {
	var c Config
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return Config{}, status.Errorf(status.InvalidArgument, "unsupported config format %q", ext)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
