package gpu

import "sync"

// Registry tracks live renderers. It replaces a process-wide instance
// counter with explicit ownership: whatever coordinates multiple video
// outputs owns a Registry, and tests can use isolated instances without
// cross-test leakage.
type Registry struct {
	mu        sync.Mutex
	renderers map[*Renderer]struct{}
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[*Renderer]struct{})}
}

func (reg *Registry) add(r *Renderer) {
	reg.mu.Lock()
	reg.renderers[r] = struct{}{}
	reg.mu.Unlock()
}

func (reg *Registry) remove(r *Renderer) {
	reg.mu.Lock()
	delete(reg.renderers, r)
	reg.mu.Unlock()
}

// Count returns the number of live renderers.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.renderers)
}

// CloseAll closes every live renderer. Used at plugin teardown.
func (reg *Registry) CloseAll() {
	reg.mu.Lock()
	live := make([]*Renderer, 0, len(reg.renderers))
	for r := range reg.renderers {
		live = append(live, r)
	}
	reg.mu.Unlock()

	for _, r := range live {
		r.Close()
	}
}
