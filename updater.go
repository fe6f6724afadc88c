package update

import "runtime"

// An Updater is the write side of an update channel. An Updater is safe for
// concurrent use by multiple goroutines, and may be cloned to give each
// producer its own handle.
type Updater[T any] struct {
	r *ref[T]
}

func newUpdater[T any](c *cell[T]) *Updater[T] {
	c.addUpdater()
	u := &Updater[T]{r: &ref[T]{c: c, drop: (*cell[T]).dropUpdater}}
	runtime.AddCleanup(u, func(r *ref[T]) { r.release() }, u.r)
	return u
}

// Update replaces the shared value of the channel with v. Any receiver that
// subsequently calls Recv will observe v, unless another Update replaces it
// first.
//
// If u is closed, or no receiver remains to observe the write, Update reports
// an error wrapping [ErrClosed] and v is not stored. The error is a
// [*RejectedError] carrying v.
func (u *Updater[T]) Update(v T) error {
	defer runtime.KeepAlive(u) // u must not be cleaned up while writing
	if u.r.closed.Load() || !u.r.c.isObserved() {
		return &RejectedError[T]{Value: v, Err: ErrClosed}
	}
	w := v
	if cp := u.r.c.copy; cp != nil {
		w = cp(v) // unlocked: a panic here leaves the cell intact
	}
	if _, err := u.r.c.write(w); err != nil {
		return &RejectedError[T]{Value: v, Err: err}
	}
	return nil
}

// HasReceiver reports whether any receiver of the channel remains.
func (u *Updater[T]) HasReceiver() bool { return u.r.c.isObserved() }

// Done returns a channel that is closed once no receiver of the channel
// remains.
func (u *Updater[T]) Done() <-chan struct{} { return u.r.c.noReceivers.Ready() }

// Clone returns a new Updater that writes to the same channel as u.
// The clone must be closed separately. Cloning a closed Updater returns a
// closed Updater.
func (u *Updater[T]) Clone() *Updater[T] {
	if u.r.closed.Load() {
		return &Updater[T]{r: closedRef(u.r.c)}
	}
	return newUpdater(u.r.c)
}

// Close releases u. When the last Updater of a channel is released, receivers
// report [ErrClosed] once they have received the last value written.
// Closing an Updater that is already closed reports ErrClosed.
func (u *Updater[T]) Close() error {
	if !u.r.release() {
		return ErrClosed
	}
	return nil
}
