package main

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine"
	"github.com/Carmen-Shannon/oxy-render/engine/config"
	"github.com/Carmen-Shannon/oxy-render/engine/service"
	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newGlobalContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", "", "")
	set.String("address", "", "")
	set.String("device", "", "")
	set.String("log-level", "", "")
	set.String("shader-dir", "", "")
	set.Bool("profile", false, "")
	require.NoError(t, set.Parse(args))
	global := cli.NewContext(cli.NewApp(), set, nil)
	return cli.NewContext(cli.NewApp(), flag.NewFlagSet("serve", flag.ContinueOnError), global)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: 10.0.0.1:9000\nlog:\n  level: debug\n"), 0o644))

	cfg, err := loadConfig(newGlobalContext(t, "--config", path, "--address", "127.0.0.1:0", "--device", "SOFTWARE", "--profile"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", cfg.Address)
	assert.Equal(t, config.BackendSoftware, cfg.Device.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Profiler.Enabled)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := loadConfig(newGlobalContext(t, "--log-level", "loud"))
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = loadConfig(newGlobalContext(t, "--device", "vulkan"))
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestAllocateWhenSettled(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("buffer export needs memfd")
	}
	e, err := engine.NewEngine(engine.WithFatalHandler(func(format string, args ...any) { t.Errorf(format, args...) }))
	require.NoError(t, err)
	defer e.Close()

	svc := e.Service()
	sceneID, err := svc.CreateScene(0)
	require.NoError(t, err)
	_, err = svc.AddCamera(service.AddCameraRequest{SceneID: sceneID, Width: 4, Height: 4})
	require.NoError(t, err)

	stop := make(chan struct{})
	done := make(chan struct{})
	go allocateWhenSettled(e, []string{"Color"}, 40*time.Millisecond, stop, done)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		close(stop)
		t.Fatal("buffers were not allocated")
	}
	layout, ok := e.Layout()
	require.True(t, ok)
	assert.Equal(t, []int{1, 1, 4, 4, 4}, layout.Shape())
}

func TestAllocateWhenSettledStops(t *testing.T) {
	e, err := engine.NewEngine()
	require.NoError(t, err)
	defer e.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go allocateWhenSettled(e, []string{"Color"}, 20*time.Millisecond, stop, done)
	close(stop)
	<-done
	_, ok := e.Layout()
	assert.False(t, ok)
}
