package gpu

import (
	"errors"
	"fmt"
	"sync"
)

// mockBackend records every backend interaction so tests can assert on
// creation counts and release ordering.
type mockBackend struct {
	mu            sync.Mutex
	events        []string
	deviceCreates int
	textureAllocs int
	nextHandle    uintptr

	failDevice   bool
	failTexture  bool
	zeroHandle   bool
	grantedLevel FeatureLevel
}

var errMockFailure = errors.New("mock backend failure")

func newMockBackend() *mockBackend {
	return &mockBackend{grantedLevel: FeatureLevel11_0}
}

func (b *mockBackend) record(e string) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *mockBackend) Events() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	copy(out, b.events)
	return out
}

func (b *mockBackend) Name() string { return "mock" }

func (b *mockBackend) CreateDevice(opts DeviceOptions) (Device, error) {
	if b.failDevice {
		return nil, errMockFailure
	}
	b.mu.Lock()
	b.deviceCreates++
	b.mu.Unlock()
	b.record("device.create")
	return &mockDevice{backend: b}, nil
}

type mockDevice struct {
	backend *mockBackend
}

func (d *mockDevice) FeatureLevel() FeatureLevel { return d.backend.grantedLevel }

func (d *mockDevice) CreateSharedTexture(width, height int32) (Texture, error) {
	if d.backend.failTexture {
		return nil, errMockFailure
	}
	d.backend.mu.Lock()
	d.backend.textureAllocs++
	d.backend.nextHandle++
	handle := d.backend.nextHandle
	d.backend.mu.Unlock()
	if d.backend.zeroHandle {
		handle = 0
	}
	d.backend.record(fmt.Sprintf("texture.create(%dx%d)", width, height))
	return &mockTexture{backend: d.backend, handle: handle, width: width, height: height}, nil
}

func (d *mockDevice) Flush() {
	d.backend.record("flush")
}

func (d *mockDevice) Release() {
	d.backend.record("context.release")
	d.backend.record("device.release")
}

type mockTexture struct {
	backend *mockBackend
	handle  uintptr
	width   int32
	height  int32
}

func (t *mockTexture) Width() int32          { return t.width }
func (t *mockTexture) Height() int32         { return t.height }
func (t *mockTexture) SharedHandle() uintptr { return t.handle }

func (t *mockTexture) Release() {
	t.backend.record("texture.release")
}
