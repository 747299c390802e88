//go:build !windows

package gpu

// NewPlatformBackend returns the preferred backend for this host.
// Non-Windows hosts render into a main-memory framebuffer; the Direct3D 11
// path is Windows only.
func NewPlatformBackend() Backend { return NewSoftwareBackend() }
