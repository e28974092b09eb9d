package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, defaultAddress, c.Address)
	assert.Equal(t, BackendSoftware, c.Device.Backend)
	assert.Equal(t, defaultQueueDepth, c.Render.QueueDepth)
	assert.GreaterOrEqual(t, c.Render.Workers, 1)
	assert.Equal(t, time.Second, c.Profiler.Interval)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
address: 0.0.0.0:9000
targets: [color, segmentation]
device:
  backend: software
render:
  workers: 3
  queue_depth: 16
profiler:
  enabled: true
  interval: 2s
log:
  level: debug
`)
	c, err := Parse(data, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", c.Address)
	assert.Equal(t, []string{"color", "segmentation"}, c.Targets)
	assert.Equal(t, 3, c.Render.Workers)
	assert.Equal(t, 16, c.Render.QueueDepth)
	assert.True(t, c.Profiler.Enabled)
	assert.Equal(t, 2*time.Second, c.Profiler.Interval)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
address = "127.0.0.1:7000"
targets = ["position"]

[device]
backend = "WGPU"
force_fallback_adapter = true

[render]
workers = 2
`)
	c, err := Parse(data, "toml")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", c.Address)
	assert.Equal(t, BackendWGPU, c.Device.Backend)
	assert.True(t, c.Device.ForceFallbackAdapter)
	assert.Equal(t, 2, c.Render.Workers)
	assert.Equal(t, defaultQueueDepth, c.Render.QueueDepth)
}

func TestParseRejectsUnknownBackend(t *testing.T) {
	_, err := Parse([]byte("device:\n  backend: metal\n"), ".yml")
	require.Error(t, err)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := Parse([]byte("{}"), ".json")
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shader_dir: "+dir+"\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, c.ShaderDir)

	require.NoError(t, os.WriteFile(path, []byte("shader_dir: "+filepath.Join(dir, "missing")+"\n"), 0o644))
	_, err = Load(path)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}
