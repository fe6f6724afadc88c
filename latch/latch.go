// Package latch provides a one-shot condition shared by multiple goroutines.
package latch

import "sync"

// A Latch is a condition that, once set, remains set permanently. The Ready
// method returns a channel that is closed when the latch is set.
//
// A zero Latch is ready for use and is not set, but must not be copied after
// any of its methods have been called.
type Latch struct {
	μ   sync.Mutex
	ch  chan struct{}
	set bool

	// The signal channel is lazily initialized by the first waiter or Set.
}

// New constructs a new unset Latch.
func New() *Latch { return new(Latch) }

// Set activates the latch, and reports whether this call was the one that
// activated it. Calling Set on a latch that is already set has no effect.
func (l *Latch) Set() bool {
	l.μ.Lock()
	defer l.μ.Unlock()

	if l.set {
		return false
	}
	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	close(l.ch) // wake any pending waiters
	l.set = true
	return true
}

// IsSet reports whether l has been set.
func (l *Latch) IsSet() bool {
	l.μ.Lock()
	defer l.μ.Unlock()
	return l.set
}

// Ready returns a channel that is closed when l is set. If l is already set
// when Ready is called, the returned channel is already closed.
func (l *Latch) Ready() <-chan struct{} {
	l.μ.Lock()
	defer l.μ.Unlock()

	if l.ch == nil {
		l.ch = make(chan struct{})
	}
	return l.ch
}
