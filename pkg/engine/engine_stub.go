//go:build ios || android || !(amd64 || arm64)

package engine

// Open reports the engine as unavailable; the native binding only covers
// 64-bit desktop platforms.
func Open(opts Options) (Engine, error) {
	return nil, ErrUnsupported
}
