package gpu

import (
	"fmt"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// SoftwareBackend is a pure-Go Backend backed by main-memory BGRA
// framebuffers. It serves non-Windows hosts, headless runs, and tests.
// Cross-process sharing is modeled with a process-wide handle table:
// a consumer resolves the renderer's handle via OpenSharedTexture.
type SoftwareBackend struct{}

// NewSoftwareBackend creates a software framebuffer backend.
func NewSoftwareBackend() *SoftwareBackend { return &SoftwareBackend{} }

// Name implements Backend.
func (*SoftwareBackend) Name() string { return "software" }

// CreateDevice implements Backend. The software device grants the richest
// requested feature level, as there is no hardware to negotiate with.
func (*SoftwareBackend) CreateDevice(opts DeviceOptions) (Device, error) {
	levels := opts.FeatureLevels
	if len(levels) == 0 {
		levels = DefaultFeatureLevels
	}
	return &softwareDevice{level: levels[0]}, nil
}

type softwareDevice struct {
	level FeatureLevel
}

func (d *softwareDevice) FeatureLevel() FeatureLevel { return d.level }

func (d *softwareDevice) CreateSharedTexture(width, height int32) (Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	t := &SoftwareTexture{
		width:  width,
		height: height,
		pix:    make([]byte, int(width)*int(height)*4),
	}
	t.handle = softTable.register(t)
	return t, nil
}

// Flush is a no-op: writes into the framebuffer become visible to the
// consumer once the guard is released, per the Go memory model.
func (d *softwareDevice) Flush() {}

func (d *softwareDevice) Release() {}

// softHandleTable maps shared handles to live software textures, standing in
// for the OS-level shared-resource namespace of a real GPU backend.
type softHandleTable struct {
	mu   sync.Mutex
	next uintptr
	open map[uintptr]*SoftwareTexture
}

var softTable = softHandleTable{next: 1, open: make(map[uintptr]*SoftwareTexture)}

func (tbl *softHandleTable) register(t *SoftwareTexture) uintptr {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	h := tbl.next
	tbl.next++
	tbl.open[h] = t
	return h
}

func (tbl *softHandleTable) unregister(h uintptr) {
	tbl.mu.Lock()
	delete(tbl.open, h)
	tbl.mu.Unlock()
}

// OpenSharedTexture resolves a shared handle produced by the software
// backend. It returns false once the texture has been released: the handle's
// validity is tied to the texture instance, exactly as with a real shared
// GPU resource.
func OpenSharedTexture(handle uintptr) (*SoftwareTexture, bool) {
	softTable.mu.Lock()
	defer softTable.mu.Unlock()
	t, ok := softTable.open[handle]
	return t, ok
}

// SoftwareTexture is a BGRA main-memory framebuffer implementing Texture.
// All pixel access must be bracketed by the owning renderer's guard.
type SoftwareTexture struct {
	width  int32
	height int32
	pix    []byte // BGRA, 4 bytes per pixel, row-major
	handle uintptr
}

func (t *SoftwareTexture) Width() int32          { return t.width }
func (t *SoftwareTexture) Height() int32         { return t.height }
func (t *SoftwareTexture) SharedHandle() uintptr { return t.handle }

// Release invalidates the shared handle and drops the pixel storage.
func (t *SoftwareTexture) Release() {
	softTable.unregister(t.handle)
	t.pix = nil
}

// Draw is the producer path: it scales src to cover the full texture and
// stores the result as BGRA. A nil scaler selects ApproxBiLinear. The caller
// must hold the renderer's guard.
func (t *SoftwareTexture) Draw(src image.Image, scaler xdraw.Scaler) {
	if t.pix == nil {
		return
	}
	bounds := image.Rect(0, 0, int(t.width), int(t.height))
	rgba := image.NewRGBA(bounds)
	if src.Bounds().Dx() == int(t.width) && src.Bounds().Dy() == int(t.height) {
		xdraw.Copy(rgba, image.Point{}, src, src.Bounds(), xdraw.Src, nil)
	} else {
		if scaler == nil {
			scaler = xdraw.ApproxBiLinear
		}
		scaler.Scale(rgba, bounds, src, src.Bounds(), xdraw.Src, nil)
	}
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		t.pix[i+0] = rgba.Pix[i+2] // B
		t.pix[i+1] = rgba.Pix[i+1] // G
		t.pix[i+2] = rgba.Pix[i+0] // R
		t.pix[i+3] = rgba.Pix[i+3] // A
	}
}

// Image is the consumer path: it snapshots the framebuffer as RGBA. The
// caller must hold the renderer's guard.
func (t *SoftwareTexture) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	if t.pix == nil {
		return img
	}
	for i := 0; i+3 < len(t.pix); i += 4 {
		img.Pix[i+0] = t.pix[i+2] // R
		img.Pix[i+1] = t.pix[i+1] // G
		img.Pix[i+2] = t.pix[i+0] // B
		img.Pix[i+3] = t.pix[i+3] // A
	}
	return img
}
