package gpu

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Renderer owns a graphics device and one shared BGRA texture sized to the
// current video frame. It is constructed with New, resized from the thread
// that owns sizing decisions, synchronized from the producer after each
// frame, and torn down with Close.
//
// All operations execute synchronously on the calling goroutine; the
// renderer runs no goroutines of its own.
type Renderer struct {
	backend      Backend
	guard        Guard
	flushTimeout time.Duration
	devOpts      DeviceOptions
	registry     *Registry

	// closed is set before any resource is torn down, and Close only
	// releases resources while holding the guard, so a guard holder that
	// observes closed as false can rely on the device staying live.
	closed atomic.Bool

	mu      sync.Mutex // guards the fields below
	device  Device
	texture Texture
	handle  uintptr
	width   int32
	height  int32
}

type config struct {
	guard        Guard
	registry     *Registry
	flushTimeout time.Duration
	devOpts      DeviceOptions
}

// Option configures a Renderer.
type Option func(*config)

// WithGuard injects the synchronization guard shared between producer and
// consumer. Defaults to NewGuard.
func WithGuard(g Guard) Option {
	return func(c *config) { c.guard = g }
}

// WithRegistry registers the renderer with reg for its lifetime.
func WithRegistry(reg *Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithFlushTimeout bounds guard acquisition in Synchronize. Zero (the
// default) blocks indefinitely.
func WithFlushTimeout(d time.Duration) Option {
	return func(c *config) { c.flushTimeout = d }
}

// WithFeatureLevels overrides the descending feature-level request list.
func WithFeatureLevels(levels []FeatureLevel) Option {
	return func(c *config) { c.devOpts.FeatureLevels = levels }
}

// WithThreadPriority sets the best-effort GPU thread scheduling hint.
// The value is clamped to [MinThreadPriority, MaxThreadPriority].
func WithThreadPriority(p int) Option {
	return func(c *config) { c.devOpts.ThreadPriority = ClampThreadPriority(p) }
}

// New creates a renderer with a device and a shared texture of the given
// size. Zero or negative dimensions are a caller error. If device or texture
// creation fails the error is fatal: no partially initialized renderer is
// ever returned, and anything already created is released.
func New(backend Backend, width, height int32, opts ...Option) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	cfg := config{
		devOpts: DeviceOptions{ThreadPriority: MaxThreadPriority - 2},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.guard == nil {
		cfg.guard = NewGuard()
	}

	r := &Renderer{
		backend:      backend,
		guard:        cfg.guard,
		flushTimeout: cfg.flushTimeout,
		devOpts:      cfg.devOpts,
		registry:     cfg.registry,
		width:        width,
		height:       height,
	}

	if err := r.ensureDevice(); err != nil {
		return nil, fmt.Errorf("gpu: create device: %w", err)
	}
	if err := r.createTexture(width, height); err != nil {
		r.device.Release()
		return nil, fmt.Errorf("gpu: create texture: %w", err)
	}

	if r.registry != nil {
		r.registry.add(r)
	}
	return r, nil
}

// ensureDevice creates the graphics device if it does not exist yet.
// Idempotent: at most one device is ever created per renderer.
func (r *Renderer) ensureDevice() error {
	if r.device != nil {
		return nil // already created
	}
	dev, err := r.backend.CreateDevice(r.devOpts)
	if err != nil {
		return err
	}
	r.device = dev
	Logger().Info("graphics device created",
		"backend", r.backend.Name(),
		"featureLevel", dev.FeatureLevel().String())
	return nil
}

// createTexture allocates the shared texture and retains its handle.
// Called with r.mu held (or during construction, before r escapes).
func (r *Renderer) createTexture(width, height int32) error {
	tex, err := r.device.CreateSharedTexture(width, height)
	if err != nil {
		return err
	}
	handle := tex.SharedHandle()
	if handle == 0 {
		tex.Release()
		return fmt.Errorf("gpu: shared handle unavailable for %dx%d texture", width, height)
	}
	r.texture = tex
	r.handle = handle
	Logger().Debug("shared texture created", "width", width, "height", height)
	return nil
}

// Resize replaces the shared texture with one of the new size. The device
// and context are preserved: device recreation is expensive and independent
// of frame size. Requesting the current size with a valid texture in place
// is a no-op, which absorbs spurious identical-size events from the UI.
//
// The guard is held across the release/recreate step so an in-flight
// Synchronize never observes a half-replaced texture. On failure the
// renderer is left without a texture (Handle reports zero) until the next
// successful Resize; callers must treat a zero handle as "not ready".
func (r *Renderer) Resize(width, height int32) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return ErrRendererClosed
	}
	if width == r.width && height == r.height && r.texture != nil {
		return nil
	}

	r.guard.Acquire(0)
	defer r.guard.Release()

	if r.texture != nil {
		r.texture.Release()
		r.texture = nil
		r.handle = 0
	}
	r.width = width
	r.height = height

	if err := r.createTexture(width, height); err != nil {
		Logger().Warn("texture recreation failed",
			"width", width, "height", height, "error", err)
		return err
	}
	return nil
}

// Synchronize is the hand-off point between the decode thread writing into
// the texture and the compositor thread reading it. It acquires the guard,
// flushes the device's command queue so pending GPU writes are visible to
// subsequent readers, and releases the guard.
//
// If a flush timeout is configured and expires, the flush is skipped and
// ErrGuardTimeout is returned; this is recoverable and the producer should
// simply try again on the next frame.
func (r *Renderer) Synchronize() error {
	if r.closed.Load() {
		return ErrRendererClosed
	}
	r.mu.Lock()
	dev := r.device
	r.mu.Unlock()

	if !r.guard.Acquire(r.flushTimeout) {
		Logger().Warn("flush skipped: guard acquisition timed out",
			"timeout", r.flushTimeout)
		return ErrGuardTimeout
	}
	// Close may have torn the device down while we waited for the guard.
	// It sets the flag before it can take the guard, so a false read here
	// means the device stays live until we release.
	if r.closed.Load() {
		r.guard.Release()
		return ErrRendererClosed
	}
	dev.Flush()
	r.guard.Release()
	return nil
}

// Handle returns the cross-process handle of the current shared texture, or
// zero when no texture is live (after a failed resize, or after Close). The
// handle is invalidated by any resize that replaces the texture.
func (r *Renderer) Handle() uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// Size returns the current requested dimensions.
func (r *Renderer) Size() (width, height int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// Guard returns the synchronization guard shared between producer and
// consumer. Pixel access on the shared texture must be bracketed by it.
func (r *Renderer) Guard() Guard {
	return r.guard
}

// FeatureLevel reports the feature level granted at device creation.
func (r *Renderer) FeatureLevel() FeatureLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil {
		return 0
	}
	return r.device.FeatureLevel()
}

// Close releases the texture, then the context and device, in that order,
// so the texture never outlives its device. The whole teardown happens
// under the guard: an in-flight Synchronize either flushes before any
// resource is released, or observes the closed flag and skips the flush.
// Close is idempotent.
func (r *Renderer) Close() error {
	r.mu.Lock()
	if r.closed.Swap(true) {
		r.mu.Unlock()
		return nil
	}

	r.guard.Acquire(0)
	if r.texture != nil {
		r.texture.Release()
		r.texture = nil
		r.handle = 0
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	r.guard.Release()
	r.mu.Unlock()

	if r.registry != nil {
		r.registry.remove(r)
	}
	return nil
}
