package update

import "runtime"

// A Receiver is the read side of an update channel. It holds a private copy
// of the shared value, tagged with the version at which it was received.
//
// A Receiver is not safe for concurrent use by multiple goroutines. To share
// a channel among several consumers, give each its own Clone.
type Receiver[T any] struct {
	r    *ref[T]
	snap T      // the local copy
	gen  uint64 // the version of snap
}

func newReceiver[T any](c *cell[T], snap T, gen uint64) *Receiver[T] {
	c.addReceiver()
	rc := &Receiver[T]{r: &ref[T]{c: c, drop: (*cell[T]).dropReceiver}, snap: snap, gen: gen}
	runtime.AddCleanup(rc, func(r *ref[T]) { r.release() }, rc.r)
	return rc
}

// Get returns the local copy of the value held by rc. Get does not
// synchronize with the channel, and may report a value older than the most
// recent update.
func (rc *Receiver[T]) Get() T { return rc.snap }

// Set replaces the local copy of the value held by rc. Modifications of the
// local copy are not visible to the channel or to other receivers.
func (rc *Receiver[T]) Set(v T) { rc.snap = v }

// Version reports the version of the local copy held by rc. Versions start at
// zero and increase by one for each update of the channel.
func (rc *Receiver[T]) Version() uint64 { return rc.gen }

// Stale reports whether the channel holds a version newer than the local copy
// held by rc that Recv could deliver. A version moved out by another
// receiver's Take does not make rc stale.
func (rc *Receiver[T]) Stale() bool { return rc.r.c.hasNewer(rc.gen) }

// Recv updates the local copy held by rc to the latest value of the channel,
// and reports whether the local copy changed. If the channel has not been
// updated since the last call, Recv reports false and leaves the local copy
// alone.
//
// Recv reports [ErrClosed] if rc is closed, or if no updater remains and rc
// has already received the last value written.
func (rc *Receiver[T]) Recv() (bool, error) {
	return rc.recv(rc.r.c.readIfNewer, nil)
}

// RecvFunc is as Recv, but if the latest value is equal to the local copy as
// reported by eq, the local copy is not replaced and RecvFunc reports false.
// The version of rc advances in either case.
func (rc *Receiver[T]) RecvFunc(eq func(old, new T) bool) (bool, error) {
	return rc.recv(rc.r.c.readIfNewer, eq)
}

// Take is as Recv, but moves the latest value out of the channel rather than
// copying it. Other receivers will not observe the taken value, and
// see no newer version until the next update. Take is useful when a channel has a single
// receiver, and the value is expensive to copy.
func (rc *Receiver[T]) Take() (bool, error) {
	return rc.recv(rc.r.c.takeIfNewer, nil)
}

// TakeFunc is as Take, but if the latest value is equal to the local copy as
// reported by eq, the local copy is not replaced and TakeFunc reports false.
// The value is moved out of the channel and the version of rc advances in
// either case.
func (rc *Receiver[T]) TakeFunc(eq func(old, new T) bool) (bool, error) {
	return rc.recv(rc.r.c.takeIfNewer, eq)
}

func (rc *Receiver[T]) recv(poll func(uint64) (T, uint64, bool, error), eq func(old, new T) bool) (bool, error) {
	defer runtime.KeepAlive(rc) // rc must not be cleaned up while polling
	if rc.r.closed.Load() {
		return false, ErrClosed
	}
	v, gen, ok, err := poll(rc.gen)
	if err != nil || !ok {
		return false, err
	}
	rc.gen = gen
	if eq != nil && eq(rc.snap, v) {
		return false, nil
	}
	rc.snap = v
	return true, nil
}

// Latest returns a copy of the current value of the channel, without changing
// the local copy held by rc. It reports ok == false if the current value was
// moved out by a call to Take.
func (rc *Receiver[T]) Latest() (_ T, ok bool, _ error) {
	if rc.r.closed.Load() {
		var zero T
		return zero, false, ErrClosed
	}
	return rc.r.c.latest()
}

// HasUpdater reports whether any updater of the channel remains.
func (rc *Receiver[T]) HasUpdater() bool { return rc.r.c.isLive() }

// Done returns a channel that is closed once no updater of the channel
// remains. Values written before the last updater closed may still be
// pending; call Recv until it reports ErrClosed to drain them.
func (rc *Receiver[T]) Done() <-chan struct{} { return rc.r.c.noUpdaters.Ready() }

// Clone returns a new Receiver on the same channel as rc, whose local copy
// and version are those of rc (not necessarily the latest of the channel).
// The clone and rc are independent thereafter, and the clone must be closed
// separately. Cloning a closed Receiver returns a closed Receiver.
//
// If the channel was created by [NewCopy], the local copy of the clone is made
// with the copy function.
func (rc *Receiver[T]) Clone() *Receiver[T] {
	snap := rc.snap
	if cp := rc.r.c.copy; cp != nil {
		snap = cp(snap) // N.B. immutable after construction, no lock needed
	}
	if rc.r.closed.Load() {
		return &Receiver[T]{r: closedRef(rc.r.c), snap: snap, gen: rc.gen}
	}
	return newReceiver(rc.r.c, snap, rc.gen)
}

// Close releases rc. The local copy remains available via Get. When the last
// Receiver of a channel is released, updates report [ErrClosed].
// Closing a Receiver that is already closed reports ErrClosed.
func (rc *Receiver[T]) Close() error {
	if !rc.r.release() {
		return ErrClosed
	}
	return nil
}
