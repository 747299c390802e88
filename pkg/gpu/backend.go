// Package gpu implements the shared-surface renderer at the heart of the
// video plugin. A renderer owns a graphics device and a single GPU-resident
// BGRA texture flagged for inter-process sharing. The playback engine draws
// decoded frames into the texture; the host compositor binds the texture's
// shared handle for display. The renderer mediates texture lifetime, resize,
// and producer/consumer synchronization.
//
// The graphics API is abstracted behind the Backend, Device, and Texture
// interfaces so the renderer's lifecycle and concurrency logic can be tested
// against a mock without a GPU. Real backends: Direct3D 11 on Windows and a
// pure-Go software framebuffer elsewhere.
package gpu

import (
	"errors"
	"fmt"
)

// FeatureLevel is a ranked capability tier requested from the graphics
// driver, encoded the way Direct3D encodes it (major nibble at bit 12,
// minor nibble at bit 8).
type FeatureLevel uint32

// Feature levels, richest first.
const (
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel10_1 FeatureLevel = 0xa100
	FeatureLevel10_0 FeatureLevel = 0xa000
	FeatureLevel9_3  FeatureLevel = 0x9300
)

func (l FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", uint32(l)>>12, (uint32(l)>>8)&0xf)
}

// DefaultFeatureLevels is the descending list of feature levels requested
// at device creation so the call degrades gracefully on older hardware.
var DefaultFeatureLevels = []FeatureLevel{
	FeatureLevel11_1,
	FeatureLevel11_0,
	FeatureLevel10_1,
	FeatureLevel10_0,
	FeatureLevel9_3,
}

// DeviceOptions configures device creation.
type DeviceOptions struct {
	// FeatureLevels is the descending list of levels to request.
	// Defaults to DefaultFeatureLevels when empty.
	FeatureLevels []FeatureLevel

	// ThreadPriority is a best-effort GPU scheduling hint, clamped to
	// [-7, 7]. Failure to apply it is never an error.
	ThreadPriority int
}

// GPU thread priority bounds for DeviceOptions.ThreadPriority.
const (
	MinThreadPriority = -7
	MaxThreadPriority = 7
)

// ClampThreadPriority clamps p to the valid GPU thread priority range.
func ClampThreadPriority(p int) int {
	if p < MinThreadPriority {
		return MinThreadPriority
	}
	if p > MaxThreadPriority {
		return MaxThreadPriority
	}
	return p
}

// Backend is the capability interface over a graphics API.
type Backend interface {
	// Name identifies the backend ("d3d11", "software", ...).
	Name() string

	// CreateDevice creates a logical GPU device plus its immediate
	// command-submission context.
	CreateDevice(opts DeviceOptions) (Device, error)
}

// Device is a logical connection to a GPU adapter. A device outlives every
// texture it creates and is released exactly once, after all its textures.
type Device interface {
	// FeatureLevel reports the level the driver actually granted.
	FeatureLevel() FeatureLevel

	// CreateSharedTexture allocates a 2-D BGRA color texture with one mip
	// level, one array slice, no multisampling, render-target and
	// shader-resource binding, and inter-process sharing enabled.
	CreateSharedTexture(width, height int32) (Texture, error)

	// Flush forces the command queue to complete pending work so texture
	// writes become visible to other readers.
	Flush()

	// Release destroys the immediate context, then the device.
	Release()
}

// Texture is a GPU-resident shared color buffer. Its shared handle is valid
// only while this texture instance is alive.
type Texture interface {
	Width() int32
	Height() int32

	// SharedHandle returns the opaque cross-process handle identifying the
	// texture's backing memory. Never zero for a live texture.
	SharedHandle() uintptr

	// Release drops the renderer's references. The handle must not be
	// dereferenced afterwards.
	Release()
}

// Errors returned by renderer operations.
var (
	// ErrInvalidSize indicates a zero or negative texture dimension.
	ErrInvalidSize = errors.New("gpu: texture dimensions must be positive")

	// ErrRendererClosed indicates use after Close.
	ErrRendererClosed = errors.New("gpu: renderer closed")

	// ErrGuardTimeout indicates the synchronization guard could not be
	// acquired before the configured timeout. Recoverable: the flush is
	// skipped and the caller may retry on the next frame.
	ErrGuardTimeout = errors.New("gpu: guard acquisition timed out")
)
