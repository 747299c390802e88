package gpu

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesTextureAtRequestedSize(t *testing.T) {
	backend := newMockBackend()

	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	w, h := r.Size()
	assert.Equal(t, int32(640), w)
	assert.Equal(t, int32(480), h)
	assert.NotZero(t, r.Handle())
	assert.Equal(t, 1, backend.textureAllocs)
}

func TestNew_ZeroSizeFailsDeterministically(t *testing.T) {
	backend := newMockBackend()

	for i := 0; i < 3; i++ {
		_, err := New(backend, 0, 480)
		require.ErrorIs(t, err, ErrInvalidSize)

		_, err = New(backend, 640, 0)
		require.ErrorIs(t, err, ErrInvalidSize)
	}
	assert.Zero(t, backend.deviceCreates, "no device should be created for an invalid size")
}

func TestNew_DeviceFailureIsFatal(t *testing.T) {
	backend := newMockBackend()
	backend.failDevice = true

	r, err := New(backend, 640, 480)
	require.Error(t, err)
	assert.Nil(t, r, "no half-initialized renderer on device failure")
}

func TestNew_TextureFailureReleasesDevice(t *testing.T) {
	backend := newMockBackend()
	backend.failTexture = true

	r, err := New(backend, 640, 480)
	require.Error(t, err)
	require.Nil(t, r)

	events := backend.Events()
	assert.Contains(t, events, "device.release",
		"device created before the texture failure must be released")
}

func TestNew_ZeroHandleIsFatal(t *testing.T) {
	backend := newMockBackend()
	backend.zeroHandle = true

	_, err := New(backend, 640, 480)
	require.Error(t, err)
	assert.Contains(t, backend.Events(), "texture.release")
}

func TestResize_SameSizeIsNoop(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	handle := r.Handle()
	require.NoError(t, r.Resize(640, 480))

	assert.Equal(t, handle, r.Handle(), "handle must be unchanged")
	assert.Equal(t, 1, backend.textureAllocs, "no reallocation on identical size")
}

func TestResize_NewSizeReplacesTexture(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	oldHandle := r.Handle()
	require.NoError(t, r.Resize(1280, 720))

	w, h := r.Size()
	assert.Equal(t, int32(1280), w)
	assert.Equal(t, int32(720), h)
	assert.NotEqual(t, oldHandle, r.Handle(), "previous handle is invalidated")
	assert.Equal(t, 2, backend.textureAllocs)

	// Old texture released before the new one is created: one live texture
	// at any time.
	events := backend.Events()
	releaseIdx, createIdx := -1, -1
	for i, e := range events {
		if e == "texture.release" && releaseIdx == -1 {
			releaseIdx = i
		}
		if e == "texture.create(1280x720)" {
			createIdx = i
		}
	}
	require.GreaterOrEqual(t, releaseIdx, 0)
	require.GreaterOrEqual(t, createIdx, 0)
	assert.Less(t, releaseIdx, createIdx, "old texture must be released before the new one exists")
}

func TestResize_InvalidSizeRejected(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	require.ErrorIs(t, r.Resize(0, 720), ErrInvalidSize)
	assert.NotZero(t, r.Handle(), "failed validation must not disturb the current texture")
}

func TestResize_FailureLeavesNoTextureUntilRetry(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	backend.failTexture = true
	require.Error(t, r.Resize(1280, 720))
	assert.Zero(t, r.Handle(), "handle must read as not-ready after a failed resize")

	// Caller-driven retry at the same size must not be absorbed by the
	// identical-size fast path while no texture exists.
	backend.failTexture = false
	require.NoError(t, r.Resize(1280, 720))
	assert.NotZero(t, r.Handle())
}

func TestSynchronize_FlushesDevice(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Synchronize())
	assert.Contains(t, backend.Events(), "flush")
}

func TestSynchronize_GuardTimeoutIsRecoverable(t *testing.T) {
	backend := newMockBackend()
	guard := NewGuard()
	r, err := New(backend, 640, 480,
		WithGuard(guard),
		WithFlushTimeout(20*time.Millisecond))
	require.NoError(t, err)
	defer r.Close()

	// Hold the guard from "the consumer" so the flush cannot proceed.
	guard.Acquire(0)
	err = r.Synchronize()
	guard.Release()

	require.ErrorIs(t, err, ErrGuardTimeout)
	assert.NotContains(t, backend.Events(), "flush", "flush must be skipped on timeout")

	// Next frame succeeds.
	require.NoError(t, r.Synchronize())
}

func TestSynchronize_ConcurrentCallersComplete(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	const callers = 16
	const iterations = 50

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				assert.NoError(t, r.Synchronize())
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent Synchronize calls did not complete in bounded time")
	}
}

func TestSynchronize_CloseDuringGuardWaitSkipsFlush(t *testing.T) {
	backend := newMockBackend()
	guard := NewGuard()
	r, err := New(backend, 640, 480, WithGuard(guard))
	require.NoError(t, err)

	// Park Synchronize in guard acquisition from "the consumer" side,
	// then let Close win the race for the guard.
	guard.Acquire(0)
	syncErr := make(chan error, 1)
	go func() { syncErr <- r.Synchronize() }()
	time.Sleep(50 * time.Millisecond)

	closeErr := make(chan error, 1)
	go func() { closeErr <- r.Close() }()
	time.Sleep(50 * time.Millisecond)
	guard.Release()

	require.NoError(t, <-closeErr)
	require.ErrorIs(t, <-syncErr, ErrRendererClosed)

	events := backend.Events()
	devIdx := -1
	for i, e := range events {
		if e == "device.release" {
			devIdx = i
		}
	}
	require.GreaterOrEqual(t, devIdx, 0)
	assert.NotContains(t, events[devIdx:], "flush",
		"no flush may be issued against a released device")
}

func TestRenderer_GuardAccessor(t *testing.T) {
	guard := NewGuard()
	r, err := New(newMockBackend(), 640, 480, WithGuard(guard))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, guard, r.Guard())
}

func TestResize_ConcurrentWithSynchronize(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.Synchronize()
			}
		}
	}()
	go func() {
		defer wg.Done()
		sizes := [][2]int32{{640, 480}, {1280, 720}, {1920, 1080}}
		for i := 0; i < 100; i++ {
			s := sizes[i%len(sizes)]
			r.Resize(s[0], s[1])
		}
	}()

	timer := time.AfterFunc(10*time.Second, func() { panic("resize/synchronize deadlock") })
	defer timer.Stop()

	go func() {
		time.Sleep(200 * time.Millisecond)
		close(stop)
	}()
	wg.Wait()
}

func TestClose_ReleaseOrder(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)

	require.NoError(t, r.Close())

	events := backend.Events()
	require.GreaterOrEqual(t, len(events), 3)
	tail := events[len(events)-3:]
	assert.Equal(t, []string{"texture.release", "context.release", "device.release"}, tail)
}

func TestClose_Idempotent(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	before := len(backend.Events())
	require.NoError(t, r.Close())
	assert.Equal(t, before, len(backend.Events()), "second Close must not touch the backend")

	assert.Zero(t, r.Handle())
	require.ErrorIs(t, r.Synchronize(), ErrRendererClosed)
	require.ErrorIs(t, r.Resize(100, 100), ErrRendererClosed)
}

func TestEnsureDevice_Idempotent(t *testing.T) {
	backend := newMockBackend()
	r, err := New(backend, 640, 480)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.ensureDevice())
	require.NoError(t, r.ensureDevice())
	require.NoError(t, r.Resize(800, 600))

	assert.Equal(t, 1, backend.deviceCreates, "device must be created exactly once")
}

func TestRegistry_TracksLifetime(t *testing.T) {
	backend := newMockBackend()
	reg := NewRegistry()

	a, err := New(backend, 320, 240, WithRegistry(reg))
	require.NoError(t, err)
	b, err := New(backend, 640, 480, WithRegistry(reg))
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Count())

	require.NoError(t, a.Close())
	assert.Equal(t, 1, reg.Count())

	reg.CloseAll()
	assert.Equal(t, 0, reg.Count())
	assert.Zero(t, b.Handle())
}

func TestFeatureLevel_String(t *testing.T) {
	assert.Equal(t, "11_1", FeatureLevel11_1.String())
	assert.Equal(t, "11_0", FeatureLevel11_0.String())
	assert.Equal(t, "10_1", FeatureLevel10_1.String())
	assert.Equal(t, "9_3", FeatureLevel9_3.String())
}

func TestClampThreadPriority(t *testing.T) {
	assert.Equal(t, MaxThreadPriority, ClampThreadPriority(99))
	assert.Equal(t, MinThreadPriority, ClampThreadPriority(-99))
	assert.Equal(t, 5, ClampThreadPriority(5))
}
