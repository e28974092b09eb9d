package gpu

import (
	"bytes"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) Device {
	t.Helper()
	d, err := NewDevice(BackendTypeSoftware, WithLabel("test"))
	require.NoError(t, err)
	t.Cleanup(d.Release)
	return d
}

func TestTimelineSignalIsMonotonic(t *testing.T) {
	tl := NewTimeline(0)
	require.NoError(t, tl.Signal(3))
	require.NoError(t, tl.Signal(3))
	err := tl.Signal(2)
	require.Error(t, err)
	assert.Equal(t, status.Internal, status.CodeOf(err))
	assert.Equal(t, uint64(3), tl.Value())
}

func TestTimelineWaitTimeoutAndWake(t *testing.T) {
	tl := NewTimeline(0)

	ok, err := tl.Wait(1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tl.Wait(0, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	done := make(chan bool)
	go func() {
		ok, _ := tl.Wait(2, Infinite)
		done <- ok
	}()
	require.NoError(t, tl.Signal(1))
	require.NoError(t, tl.Signal(2))
	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken")
	}
}

func TestTimelineFailWakesWaiters(t *testing.T) {
	tl := newTimeline(0)
	errs := make(chan error)
	go func() {
		_, err := tl.Wait(1, Infinite)
		errs <- err
	}()
	tl.fail(errDeviceLost)
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, errDeviceLost)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter was not woken")
	}
	assert.Error(t, tl.Signal(1))
}

func TestCommandBufferRejectsOverflow(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.CreateBuffer("small", 8, false)
	require.NoError(t, err)

	cb := d.CreateCommandBuffer()
	require.NoError(t, cb.CopyToBuffer([]byte{1, 2, 3, 4}, buf, 4))
	err = cb.CopyToBuffer([]byte{1, 2, 3, 4}, buf, 6)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
	assert.Equal(t, 1, cb.Len())
	cb.Reset()
	assert.Equal(t, 0, cb.Len())
}

func TestCreateBufferRejectsEmpty(t *testing.T) {
	d := newTestDevice(t)
	_, err := d.CreateBuffer("empty", 0, false)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestSubmitCopiesAndSignals(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.CreateBuffer("out", 16, false)
	require.NoError(t, err)
	tl := d.CreateTimeline(0)
	cb := d.CreateCommandBuffer()

	require.NoError(t, cb.CopyToBuffer([]byte{9, 9, 9, 9}, buf, 8))
	require.NoError(t, d.Submit(cb, tl, 1))
	cb.Reset()

	res, err := d.WaitTimelines([]Timeline{tl}, []uint64{1}, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, WaitSuccess, res)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 9, 9, 9, 9, 0, 0, 0, 0}, buf.Bytes())
}

func TestSubmissionsCompleteInOrder(t *testing.T) {
	d := newTestDevice(t)
	tl := d.CreateTimeline(0)
	var mu sync.Mutex
	var seen []uint64

	stop := make(chan struct{})
	go func() {
		last := uint64(0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			v := tl.Value()
			if v != last {
				mu.Lock()
				seen = append(seen, v)
				mu.Unlock()
				last = v
			}
			runtime.Gosched()
		}
	}()

	cb := d.CreateCommandBuffer()
	for i := uint64(1); i <= 50; i++ {
		require.NoError(t, d.Submit(cb, tl, i))
	}
	ok, err := tl.Wait(50, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	close(stop)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1])
	}
}

func TestWaitTimelinesTimeout(t *testing.T) {
	d := newTestDevice(t)
	a := d.CreateTimeline(1)
	b := d.CreateTimeline(0)
	res, err := d.WaitTimelines([]Timeline{a, b}, []uint64{1, 1}, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, WaitTimeout, res)

	_, err = d.WaitTimelines([]Timeline{a}, []uint64{1, 2}, 0)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestReleaseFailsPendingWaitsAndSubmits(t *testing.T) {
	d, err := NewDevice(BackendTypeSoftware)
	require.NoError(t, err)
	tl := d.CreateTimeline(0)

	errs := make(chan error, 1)
	go func() {
		_, err := d.WaitTimelines([]Timeline{tl}, []uint64{5}, Infinite)
		errs <- err
	}()
	d.Release()

	select {
	case err := <-errs:
		assert.Equal(t, status.Internal, status.CodeOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("wait was not failed by release")
	}
	assert.Error(t, d.Submit(d.CreateCommandBuffer(), tl, 1))
}

func TestExportedBufferIsSharedMemory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("export requires memfd")
	}
	d := newTestDevice(t)
	buf, err := d.CreateBuffer("exported", 4096, true)
	require.NoError(t, err)

	h, err := buf.Export()
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), h.Size)

	m, err := MapExport(h)
	require.NoError(t, err)
	defer m.Close()

	tl := d.CreateTimeline(0)
	cb := d.CreateCommandBuffer()
	require.NoError(t, cb.CopyToBuffer([]byte("frame"), buf, 100))
	require.NoError(t, d.Submit(cb, tl, 1))
	ok, err := tl.Wait(1, 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, bytes.Equal([]byte("frame"), m.Bytes()[100:105]))
}

func TestNonExportableBufferRefusesExport(t *testing.T) {
	d := newTestDevice(t)
	buf, err := d.CreateBuffer("plain", 16, false)
	require.NoError(t, err)
	_, err = buf.Export()
	assert.Equal(t, status.Internal, status.CodeOf(err))
}

func TestParseBackendType(t *testing.T) {
	bt, err := ParseBackendType("WGPU")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeWGPU, bt)
	bt, err = ParseBackendType("")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeSoftware, bt)
	_, err = ParseBackendType("vulkan")
	assert.Error(t, err)
}
