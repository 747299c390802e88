package video

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/go-drift/media/pkg/errors"
	"github.com/go-drift/media/pkg/gpu"
	"github.com/go-drift/media/pkg/platform"
)

// TextureUpdate notifies the framework side that a player's video surface
// changed. wid is the shared texture handle the consumer should open, or
// zero when the surface was destroyed and the previous handle must not be
// bound again.
type TextureUpdate func(wid uintptr, width, height int32)

// ErrUnknownPlayer is returned when an operation names a player handle with
// no registered output.
var ErrUnknownPlayer = stderrors.New("video: unknown player handle")

// signal is the last texture update delivered for an output. Used to drop
// duplicate notifications when geometry callbacks repeat the same state.
type signal struct {
	wid    uintptr
	width  int32
	height int32
}

// Manager owns the video outputs of a plugin instance: one Output per
// player handle, each feeding texture updates to a registered callback.
type Manager struct {
	backend  gpu.Backend
	registry *gpu.Registry
	opts     []gpu.Option
	views    *platform.PlatformViewRegistry

	mu        sync.Mutex
	callbacks map[int64]TextureUpdate
	outputs   map[int64]*Output
	last      map[int64]signal // view ID -> last delivered update
}

// NewManager returns a manager creating renderers on the given backend.
// Renderer options apply to every output's renderer; the manager adds its
// own gpu.Registry so Close can tear down all surfaces at once.
func NewManager(backend gpu.Backend, opts ...gpu.Option) *Manager {
	m := &Manager{
		backend:   backend,
		registry:  gpu.NewRegistry(),
		views:     platform.GetPlatformViewRegistry(),
		callbacks: make(map[int64]TextureUpdate),
		outputs:   make(map[int64]*Output),
		last:      make(map[int64]signal),
	}
	m.opts = append([]gpu.Option{gpu.WithRegistry(m.registry)}, opts...)
	m.views.RegisterFactory(&outputFactory{manager: m})
	return m
}

// Create registers a texture-update callback for the player and embeds a
// new video output view in the host UI. The surface itself appears later,
// once the first valid size is known.
func (m *Manager) Create(player int64, cb TextureUpdate) (*Output, error) {
	m.mu.Lock()
	if _, ok := m.outputs[player]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("video: output for player %d already exists", player)
	}
	m.callbacks[player] = cb
	m.mu.Unlock()

	view, err := m.views.Create(ViewType, map[string]any{"handle": player})
	if err != nil {
		m.mu.Lock()
		delete(m.callbacks, player)
		delete(m.outputs, player)
		m.mu.Unlock()
		return nil, err
	}
	return view.(*Output), nil
}

// registerOutput records a factory-created output under its player handle.
func (m *Manager) registerOutput(o *Output) {
	m.mu.Lock()
	m.outputs[o.Player()] = o
	m.mu.Unlock()
}

// Dispose destroys the player's output. The callback receives a final
// zero-wid update so the consumer releases the surface before the texture
// goes away.
func (m *Manager) Dispose(player int64) error {
	m.mu.Lock()
	o, ok := m.outputs[player]
	delete(m.outputs, player)
	cb := m.callbacks[player]
	delete(m.callbacks, player)
	if ok {
		delete(m.last, o.ViewID())
	}
	m.mu.Unlock()

	if !ok {
		return ErrUnknownPlayer
	}

	m.notify(cb, 0, 0, 0)
	m.views.Dispose(o.ViewID())
	return nil
}

// SetSurfaceSize resizes the player's surface in physical pixels, creating
// it if this is the first valid size.
func (m *Manager) SetSurfaceSize(player int64, width, height int32) error {
	m.mu.Lock()
	o, ok := m.outputs[player]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownPlayer
	}
	o.resize(width, height)
	return nil
}

// Output returns the player's output, or nil if none exists.
func (m *Manager) Output(player int64) *Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outputs[player]
}

// Registry exposes the renderer registry, mainly for inspection in tests
// and diagnostics.
func (m *Manager) Registry() *gpu.Registry { return m.registry }

// Close disposes every output and closes any renderer that escaped
// per-output teardown.
func (m *Manager) Close() {
	m.mu.Lock()
	players := make([]int64, 0, len(m.outputs))
	for p := range m.outputs {
		players = append(players, p)
	}
	m.mu.Unlock()

	for _, p := range players {
		m.Dispose(p)
	}
	m.registry.CloseAll()
}

// newRenderer builds a renderer for an output with the manager's options.
func (m *Manager) newRenderer(width, height int32) (*gpu.Renderer, error) {
	return gpu.New(m.backend, width, height, m.opts...)
}

// trySignalSurfaceReady delivers a texture update for the output, dropping
// exact duplicates of the previous one. A zero wid never signals readiness.
func (m *Manager) trySignalSurfaceReady(o *Output, wid uintptr, width, height int32) {
	if wid == 0 || width <= 0 || height <= 0 {
		return
	}

	next := signal{wid: wid, width: width, height: height}

	m.mu.Lock()
	if m.last[o.ViewID()] == next {
		m.mu.Unlock()
		return
	}
	m.last[o.ViewID()] = next
	cb := m.callbacks[o.Player()]
	m.mu.Unlock()

	m.notify(cb, wid, width, height)
}

// surfaceLost tells the output's consumer that the previous handle is dead
// and no replacement exists yet.
func (m *Manager) surfaceLost(o *Output) {
	m.mu.Lock()
	delete(m.last, o.ViewID())
	cb := m.callbacks[o.Player()]
	m.mu.Unlock()

	m.notify(cb, 0, 0, 0)
}

// onOutputDisposed drops bookkeeping for a view disposed through the
// platform view registry rather than through Dispose.
func (m *Manager) onOutputDisposed(o *Output) {
	m.mu.Lock()
	if m.outputs[o.Player()] == o {
		delete(m.outputs, o.Player())
	}
	delete(m.last, o.ViewID())
	m.mu.Unlock()
}

// notify runs the callback on the UI thread when a dispatcher is
// registered, inline otherwise. Panics in consumer code are reported, not
// propagated.
func (m *Manager) notify(cb TextureUpdate, wid uintptr, width, height int32) {
	if cb == nil {
		return
	}
	run := func() {
		defer errors.Recover("video.Manager.notify")
		cb(wid, width, height)
	}
	if !platform.Dispatch(run) {
		run()
	}
}

// reportGraphics forwards a renderer failure to the global error handler.
func (m *Manager) reportGraphics(op string, err error) {
	errors.Report(&errors.MediaError{
		Op:   op,
		Kind: errors.KindGraphics,
		Err:  err,
	})
}
