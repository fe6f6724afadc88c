package update

import (
	"sync"
	"sync/atomic"

	"github.com/creachadair/update/latch"
)

// A cell is the shared state of an update channel. All fields other than the
// latches are protected by μ.
type cell[T any] struct {
	μ       sync.Mutex
	x       T
	gen     uint64    // write generation, incremented by write
	taken   bool      // the value at gen was moved out by take
	corrupt bool      // a locked operation panicked
	copy    func(T) T // if non-nil, copies values read out of the cell

	updaters  int // live Updater handles
	receivers int // live Receiver handles

	noUpdaters  latch.Latch // set when updaters reaches zero
	noReceivers latch.Latch // set when receivers reaches zero
}

// write replaces the value stored in c and reports its new generation.
func (c *cell[T]) write(v T) (uint64, error) {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.corrupt {
		return 0, ErrCorrupted
	}
	c.x = v
	c.gen++
	c.taken = false
	return c.gen, nil
}

// readIfNewer reports a copy of the value in c and its generation, if the
// generation is greater than known and the value was not taken. Otherwise
// ok == false. If ok == false and no updater remains, readIfNewer reports
// ErrClosed, since no newer value can ever arrive.
func (c *cell[T]) readIfNewer(known uint64) (_ T, _ uint64, ok bool, _ error) {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.pollLocked(known, c.copyLocked)
}

// takeIfNewer is as readIfNewer, but moves the value out of c instead of
// copying it. Other readers will not observe the taken value.
func (c *cell[T]) takeIfNewer(known uint64) (_ T, _ uint64, ok bool, _ error) {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.pollLocked(known, func() T {
		var zero T
		v := c.x
		c.x = zero
		c.taken = true
		return v
	})
}

// pollLocked implements readIfNewer and takeIfNewer, using get to fetch the
// value when there is one to report. The caller must hold c.μ.
func (c *cell[T]) pollLocked(known uint64, get func() T) (_ T, _ uint64, ok bool, _ error) {
	var zero T
	if c.corrupt {
		return zero, known, false, ErrCorrupted
	} else if c.gen > known && !c.taken {
		return get(), c.gen, true, nil
	} else if c.updaters == 0 {
		return zero, known, false, ErrClosed
	}
	return zero, known, false, nil
}

// latest reports a copy of the current value in c. It reports ok == false if
// the current value was taken.
func (c *cell[T]) latest() (_ T, ok bool, _ error) {
	c.μ.Lock()
	defer c.μ.Unlock()

	var zero T
	if c.corrupt {
		return zero, false, ErrCorrupted
	} else if c.taken {
		return zero, false, nil
	}
	return c.copyLocked(), true, nil
}

// copyLocked returns a copy of the current value of c. If the copy function
// panics, c is marked corrupt before the panic propagates.
// The caller must hold c.μ.
func (c *cell[T]) copyLocked() T {
	if c.copy == nil {
		return c.x
	}
	ok := false
	defer func() {
		if !ok {
			c.corrupt = true
		}
	}()
	v := c.copy(c.x)
	ok = true
	return v
}

// hasNewer reports whether c holds a value newer than known that has not
// been taken.
func (c *cell[T]) hasNewer(known uint64) bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.gen > known && !c.taken
}

// isLive reports whether any updater remains.
func (c *cell[T]) isLive() bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.updaters > 0
}

// isObserved reports whether any receiver remains.
func (c *cell[T]) isObserved() bool {
	c.μ.Lock()
	defer c.μ.Unlock()
	return c.receivers > 0
}

func (c *cell[T]) addUpdater() {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.updaters++
}

func (c *cell[T]) dropUpdater() {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.updaters--; c.updaters == 0 {
		c.noUpdaters.Set()
	}
}

func (c *cell[T]) addReceiver() {
	c.μ.Lock()
	defer c.μ.Unlock()
	c.receivers++
}

func (c *cell[T]) dropReceiver() {
	c.μ.Lock()
	defer c.μ.Unlock()
	if c.receivers--; c.receivers == 0 {
		c.noReceivers.Set()
	}
}

// A ref is one counted reference to a cell, held by a single handle.
type ref[T any] struct {
	c      *cell[T]
	drop   func(*cell[T]) // called once, when the reference is released
	closed atomic.Bool
}

// closedRef returns a reference to c that is already released.
func closedRef[T any](c *cell[T]) *ref[T] {
	r := &ref[T]{c: c}
	r.closed.Store(true)
	return r
}

// release drops r's reference to its cell, and reports whether this call was
// the one that did so.
func (r *ref[T]) release() bool {
	if r.closed.Swap(true) {
		return false
	}
	r.drop(r.c)
	return true
}
