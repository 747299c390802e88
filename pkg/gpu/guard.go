package gpu

import "time"

// Guard is the mutual-exclusion primitive bracketing all access to the
// renderer's shared texture. Both the frame producer and the compositor
// consumer must acquire the same guard around any texture access so that
// neither side ever observes a half-replaced texture.
//
// The guard provides mutual exclusion, not ordering: if producer and
// consumer both wait, either may proceed first.
type Guard interface {
	// Acquire blocks until the guard is held. A timeout of zero or less
	// blocks indefinitely. Returns false if the timeout expired before the
	// guard could be acquired.
	Acquire(timeout time.Duration) bool

	// Release releases the guard. It must only be called while holding it.
	Release()
}

// chanGuard implements Guard with a buffered channel, which supports timed
// acquisition without busy waiting.
type chanGuard struct {
	sem chan struct{}
}

// NewGuard returns the default Guard implementation.
func NewGuard() Guard {
	g := &chanGuard{sem: make(chan struct{}, 1)}
	g.sem <- struct{}{}
	return g
}

func (g *chanGuard) Acquire(timeout time.Duration) bool {
	if timeout <= 0 {
		<-g.sem
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-g.sem:
		return true
	case <-timer.C:
		return false
	}
}

func (g *chanGuard) Release() {
	select {
	case g.sem <- struct{}{}:
	default:
		panic("gpu: Release of unacquired guard")
	}
}
