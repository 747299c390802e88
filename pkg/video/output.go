// Package video bridges a native playback engine's render output to the
// host framework's platform-view machinery. Each player handle gets an
// Output: a platform view owning one gpu.Renderer whose shared texture the
// engine draws into and the host compositor displays.
package video

import (
	"sync"

	"github.com/go-drift/media/pkg/gpu"
	"github.com/go-drift/media/pkg/platform"
)

// ViewType identifies video output platform views with the host framework.
const ViewType = "video_output"

// Output is a platform view backing one player's video surface. The
// renderer is created lazily, once the first valid size is known; zero-area
// sizes are held back and never produce a surface-ready signal.
type Output struct {
	platform.BasePlatformView
	manager *Manager
	player  int64 // playback engine handle this output feeds

	mu       sync.Mutex
	renderer *gpu.Renderer
	width    int32
	height   int32
}

func newOutput(viewID int64, player int64, manager *Manager) *Output {
	return &Output{
		BasePlatformView: platform.NewBasePlatformView(viewID, ViewType),
		manager:          manager,
		player:           player,
	}
}

// Create implements platform.PlatformView. The renderer is deferred until
// the first valid size arrives, so nothing to do here.
func (o *Output) Create(params map[string]any) error { return nil }

// Player returns the playback engine handle this output feeds.
func (o *Output) Player() int64 { return o.player }

// Handle returns the shared texture handle, or zero while no surface is
// ready.
func (o *Output) Handle() uintptr {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.renderer == nil {
		return 0
	}
	return o.renderer.Handle()
}

// Renderer returns the output's renderer, or nil before the first valid
// size. The playback engine attaches to its shared texture.
func (o *Output) Renderer() *gpu.Renderer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.renderer
}

// Synchronize flushes pending GPU writes to the shared texture. Called by
// the engine's render callback after each completed frame.
func (o *Output) Synchronize() error {
	o.mu.Lock()
	r := o.renderer
	o.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Synchronize()
}

// SetSize implements platform.PlatformView. The framework reports sizes in
// logical pixels; invalid sizes are held back until a real one arrives.
func (o *Output) SetSize(size platform.Size) {
	o.BasePlatformView.SetSize(size)
	o.resize(int32(size.Width), int32(size.Height))
}

// resize creates or resizes the renderer and signals surface readiness.
func (o *Output) resize(width, height int32) {
	if width <= 0 || height <= 0 {
		return
	}

	o.mu.Lock()
	if o.renderer == nil {
		r, err := o.manager.newRenderer(width, height)
		if err != nil {
			o.mu.Unlock()
			o.manager.reportGraphics("video.Output.resize", err)
			return
		}
		o.renderer = r
	} else if width != o.width || height != o.height || o.renderer.Handle() == 0 {
		// The handle check keeps a caller-driven retry at the same size
		// from being absorbed while a failed resize left no texture.
		if err := o.renderer.Resize(width, height); err != nil {
			o.mu.Unlock()
			o.manager.reportGraphics("video.Output.resize", err)
			// Surface is absent until the next successful resize; tell
			// the consumer not to bind the stale handle.
			o.manager.surfaceLost(o)
			return
		}
	}
	o.width, o.height = width, height
	handle := o.renderer.Handle()
	o.mu.Unlock()

	o.manager.trySignalSurfaceReady(o, handle, width, height)
}

// Dispose implements platform.PlatformView.
func (o *Output) Dispose() {
	o.mu.Lock()
	r := o.renderer
	o.renderer = nil
	o.mu.Unlock()

	if r != nil {
		r.Close()
	}
	o.manager.onOutputDisposed(o)
}

// outputFactory creates video output platform views.
type outputFactory struct {
	manager *Manager
}

func (f *outputFactory) ViewType() string { return ViewType }

func (f *outputFactory) Create(viewID int64, params map[string]any) (platform.PlatformView, error) {
	player, err := argInt64(params, "handle")
	if err != nil {
		return nil, err
	}
	view := newOutput(viewID, player, f.manager)
	f.manager.registerOutput(view)
	return view, nil
}
