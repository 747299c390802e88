// Package engine loads the native playback engine (libmpv) and binds video
// outputs to its render path. The engine draws into the shared texture a
// video output exposes; everything above this package talks in terms of
// player handles and texture handles, never raw library calls.
package engine

import "errors"

var (
	// ErrUnsupported is returned on platforms the native binding does not
	// cover.
	ErrUnsupported = errors.New("engine: playback engine not supported on this platform")
	// ErrNotFound is returned when the engine library cannot be located.
	ErrNotFound = errors.New("engine: playback engine library not found")
	// ErrVersionTooOld is returned when the loaded engine predates the
	// minimum supported client API version.
	ErrVersionTooOld = errors.New("engine: playback engine version too old")
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("engine: closed")
)

// Engine is one playback engine instance rendering into at most one video
// output at a time.
type Engine interface {
	// Version reports the engine's client API version ("v2.1").
	Version() string

	// AttachOutput directs video rendering into the shared texture
	// identified by wid. Must be called before playback starts; a second
	// call replaces the previous output.
	AttachOutput(wid uintptr, width, height int32) error

	// DetachOutput stops rendering into the current output. The texture
	// handle must not be used by the engine afterwards.
	DetachOutput() error

	// Close destroys the engine instance. The engine must be detached from
	// its output first; Close detaches implicitly.
	Close() error
}

// Options configures engine loading.
type Options struct {
	// LibraryPath names the engine shared library explicitly. Empty means
	// the platform default search order.
	LibraryPath string

	// MinVersion is the semver floor for the engine's client API.
	// Empty means DefaultMinVersion.
	MinVersion string
}
