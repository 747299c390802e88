//go:build !ios && !android && (amd64 || arm64)

package engine

import (
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/ebitengine/purego"
)

// Library bindings, registered once per process.
var (
	loadOnce sync.Once
	loadErr  error

	mpvClientAPIVersion func() uint32
	mpvCreate           func() uintptr
	mpvInitialize       func(handle uintptr) int32
	mpvTerminateDestroy func(handle uintptr)
	mpvSetOptionString  func(handle uintptr, name, value string) int32
	mpvErrorString      func(code int32) string
)

// libraryNames returns candidate library file names in preference order.
func libraryNames() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"mpv-2.dll", "libmpv-2.dll", "mpv-1.dll"}
	case "darwin":
		return []string{"libmpv.2.dylib", "libmpv.dylib"}
	default:
		return []string{"libmpv.so.2", "libmpv.so.1", "libmpv.so"}
	}
}

func loadEngine(path string) error {
	loadOnce.Do(func() {
		loadErr = doLoad(path)
	})
	return loadErr
}

func doLoad(path string) error {
	var lib uintptr
	if path != "" {
		l, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNotFound, path, err)
		}
		lib = l
	} else {
		for _, name := range libraryNames() {
			l, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
			if err == nil {
				lib = l
				break
			}
		}
		if lib == 0 {
			return ErrNotFound
		}
	}

	purego.RegisterLibFunc(&mpvClientAPIVersion, lib, "mpv_client_api_version")
	purego.RegisterLibFunc(&mpvCreate, lib, "mpv_create")
	purego.RegisterLibFunc(&mpvInitialize, lib, "mpv_initialize")
	purego.RegisterLibFunc(&mpvTerminateDestroy, lib, "mpv_terminate_destroy")
	purego.RegisterLibFunc(&mpvSetOptionString, lib, "mpv_set_option_string")
	purego.RegisterLibFunc(&mpvErrorString, lib, "mpv_error_string")
	return nil
}

// Open loads the engine library, enforces the minimum client API version,
// and creates one engine instance.
func Open(opts Options) (Engine, error) {
	if err := loadEngine(opts.LibraryPath); err != nil {
		return nil, err
	}

	version := clientAPIVersionString(mpvClientAPIVersion())
	if err := CheckVersion(version, opts.MinVersion); err != nil {
		return nil, err
	}

	h := mpvCreate()
	if h == 0 {
		return nil, fmt.Errorf("engine: instance creation failed")
	}
	if code := mpvSetOptionString(h, "vo", "libmpv"); code < 0 {
		mpvTerminateDestroy(h)
		return nil, engineError("set vo", code)
	}
	return &mpvEngine{handle: h, version: version}, nil
}

func engineError(op string, code int32) error {
	return fmt.Errorf("engine: %s: %s", op, mpvErrorString(code))
}

type mpvEngine struct {
	mu          sync.Mutex
	handle      uintptr
	version     string
	initialized bool
	attached    bool
}

func (e *mpvEngine) Version() string { return e.version }

func (e *mpvEngine) AttachOutput(wid uintptr, width, height int32) error {
	if wid == 0 || width <= 0 || height <= 0 {
		return fmt.Errorf("engine: invalid output %#x (%dx%d)", wid, width, height)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == 0 {
		return ErrClosed
	}

	if code := mpvSetOptionString(e.handle, "wid", strconv.FormatUint(uint64(wid), 10)); code < 0 {
		return engineError("attach output", code)
	}
	if !e.initialized {
		if code := mpvInitialize(e.handle); code < 0 {
			return engineError("initialize", code)
		}
		e.initialized = true
	}
	e.attached = true
	return nil
}

func (e *mpvEngine) DetachOutput() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == 0 {
		return ErrClosed
	}
	if !e.attached {
		return nil
	}
	if code := mpvSetOptionString(e.handle, "wid", "0"); code < 0 {
		return engineError("detach output", code)
	}
	e.attached = false
	return nil
}

func (e *mpvEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handle == 0 {
		return nil
	}
	if e.attached {
		// Best effort: the texture may already be gone.
		mpvSetOptionString(e.handle, "wid", "0")
		e.attached = false
	}
	mpvTerminateDestroy(e.handle)
	e.handle = 0
	return nil
}
